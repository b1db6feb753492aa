package counter

import (
	"math"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "count.txt"

func fileContent(t *testing.T, fs afero.Fs) string {
	t.Helper()
	data, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)
	return string(data)
}

func writeFile(t *testing.T, fs afero.Fs, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(content), 0o644))
}

func int64p(v int64) *int64 { return &v }

func TestOpenDefaultsToZero(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, invalid, err := Open(fs, testPath, Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, invalid)
	assert.Equal(t, int64(0), c.Value())
}

func TestOpenParsesExistingContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
	}{
		{"No trailing newline", "42", 42},
		{"Trailing newline", "42\n", 42},
		{"Negative", "-17\n", -17},
		{"Max int64", strconv.FormatInt(math.MaxInt64, 10), math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, tt.content)

			c, invalid, err := Open(fs, testPath, Options{})
			require.NoError(t, err)
			defer c.Close()

			assert.False(t, invalid)
			assert.Equal(t, tt.want, c.Value())
		})
	}
}

func TestOpenExplicitStartOverridesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "42")

	c, invalid, err := Open(fs, testPath, Options{Start: int64p(7)})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, invalid)
	assert.Equal(t, int64(7), c.Value())
}

func TestOpenExplicitStartSkipsValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "not-a-number")

	c, invalid, err := Open(fs, testPath, Options{Start: int64p(3)})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, invalid)
	assert.Equal(t, int64(3), c.Value())
}

func TestOpenFlagsInvalidContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "not-a-number")

	c, invalid, err := Open(fs, testPath, Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, invalid)
	assert.Equal(t, int64(0), c.Value())
	// Detection alone must not touch the file
	assert.Equal(t, "not-a-number", fileContent(t, fs))
}

func TestRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, _, err := Open(fs, testPath, Options{})
	require.NoError(t, err)
	defer c.Close()

	// After every mutation the file parses back to the in-memory value
	steps := []func() error{
		c.Increment, c.Increment, c.Increment,
		c.Decrement, c.Increment,
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assert.Equal(t, strconv.FormatInt(c.Value(), 10), fileContent(t, fs))
	}
	assert.Equal(t, int64(3), c.Value())
}

func TestDecrementBelowZero(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, _, err := Open(fs, testPath, Options{})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Decrement())
	assert.Equal(t, int64(-1), c.Value())
	assert.Equal(t, "-1", fileContent(t, fs))
}

func TestPersistTruncatesResidue(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, _, err := Open(fs, testPath, Options{Start: int64p(10)})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Persist())
	require.NoError(t, c.Decrement())
	// "9" must not leave a stray '0' from the previous "10"
	assert.Equal(t, "9", fileContent(t, fs))
}

func TestIncrementOverflow(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, _, err := Open(fs, testPath, Options{Start: int64p(math.MaxInt64)})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Persist())

	before := fileContent(t, fs)
	err = c.Increment()
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, int64(math.MaxInt64), c.Value())
	// Persist skipped for the failed tick
	assert.Equal(t, before, fileContent(t, fs))
}

func TestDecrementUnderflow(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, _, err := Open(fs, testPath, Options{Start: int64p(math.MinInt64)})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Persist())

	before := fileContent(t, fs)
	err = c.Decrement()
	assert.ErrorIs(t, err, ErrUnderflow)
	assert.Equal(t, int64(math.MinInt64), c.Value())
	assert.Equal(t, before, fileContent(t, fs))
}

func TestPersistWithDataSync(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, _, err := Open(fs, testPath, Options{DataSync: true})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Increment())
	assert.Equal(t, "1", fileContent(t, fs))
}

func TestOpenCreatesMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, invalid, err := Open(fs, testPath, Options{})
	require.NoError(t, err)
	defer c.Close()
	assert.False(t, invalid)

	require.NoError(t, c.Persist())
	assert.Equal(t, "0", fileContent(t, fs))
}
