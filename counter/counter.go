// Package counter implements the file-backed counter store. The on-disk
// format is a single line holding the decimal value; after every
// successful mutation the file contains exactly that rendering and
// nothing else.
package counter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrOverflow is returned when incrementing at the int64 maximum.
	// The value and the file are left unchanged.
	ErrOverflow = errors.New("counter overflow")

	// ErrUnderflow is returned when decrementing at the int64 minimum.
	ErrUnderflow = errors.New("counter underflow")

	// ErrInvalidData reports a counter file holding non-counter content
	// that the user declined to overwrite.
	ErrInvalidData = errors.New("file contained non-counter data")
)

// Options controls counter initialization.
type Options struct {
	// Start overrides any file-derived value when non-nil.
	Start *int64

	// DataSync forces a sync to stable storage on every persist.
	DataSync bool
}

// FileCounter persists a signed 64-bit count to a text file.
type FileCounter struct {
	file     afero.File
	value    int64
	dataSync bool
}

// Open loads or initializes the counter at path. The file is opened
// read/write and created if absent; existing content is never truncated
// during the read phase.
//
// Initial value precedence: opts.Start, then the first line of the file
// parsed as a signed integer (trailing whitespace trimmed), then 0.
//
// When the file is non-empty, unparseable and no explicit start was
// given, Open returns invalid=true with the value left at 0 and the
// file untouched; the caller decides whether to continue (overwriting
// on the first persist) or close and abort.
func Open(fs afero.Fs, path string, opts Options) (c *FileCounter, invalid bool, err error) {
	file, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open counter file: %w", err)
	}

	c = &FileCounter{file: file, dataSync: opts.DataSync}

	if opts.Start != nil {
		c.value = *opts.Start
		return c, false, nil
	}

	line, err := bufio.NewReader(file).ReadString('\n')
	if err != nil && err != io.EOF {
		file.Close()
		return nil, false, fmt.Errorf("read counter file: %w", err)
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return c, false, nil
	}

	value, perr := strconv.ParseInt(trimmed, 10, 64)
	if perr != nil {
		return c, true, nil
	}
	c.value = value
	return c, false, nil
}

// Value returns the current count.
func (c *FileCounter) Value() int64 {
	return c.value
}

// Increment adds one and persists. At the int64 maximum the value is
// unchanged, nothing is written, and ErrOverflow is returned.
func (c *FileCounter) Increment() error {
	if c.value == math.MaxInt64 {
		return ErrOverflow
	}
	c.value++
	return c.Persist()
}

// Decrement subtracts one and persists. At the int64 minimum the value
// is unchanged, nothing is written, and ErrUnderflow is returned.
func (c *FileCounter) Decrement() error {
	if c.value == math.MinInt64 {
		return ErrUnderflow
	}
	c.value--
	return c.Persist()
}

// Persist rewrites the file to hold exactly the decimal value: truncate
// to zero length, write from the start, then sync when DataSync is set.
// Truncation first guarantees no residue from a longer previous value.
func (c *FileCounter) Persist() error {
	if err := c.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate counter file: %w", err)
	}
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek counter file: %w", err)
	}
	if _, err := c.file.WriteString(strconv.FormatInt(c.value, 10)); err != nil {
		return fmt.Errorf("write counter file: %w", err)
	}
	if c.dataSync {
		if err := c.file.Sync(); err != nil {
			return fmt.Errorf("sync counter file: %w", err)
		}
	}
	return nil
}

// Close releases the file handle.
func (c *FileCounter) Close() error {
	return c.file.Close()
}
