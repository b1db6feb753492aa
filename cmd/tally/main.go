package main

import (
	"errors"
	"fmt"
	"os"
	rtdebug "runtime/debug"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/tally/app"
	"github.com/lixenwraith/tally/sound"
	"github.com/lixenwraith/tally/terminal"
)

const version = "1.0.0"

var (
	noSync   bool
	silent   bool
	debugLog bool
)

var rootCmd = &cobra.Command{
	Use:     "tally <path> [start-value]",
	Short:   "Terminal tally counter with file-backed storage",
	Version: version,
	Long: `tally is a terminal tally counter. The count is persisted to <path>
after every change, so it survives restarts.

Keys: + = space increment, - _ backspace decrement, q quits.

An optional start-value overrides whatever the file currently holds.`,
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVarP(&noSync, "no-sync", "n", false,
		"disable syncing of data to disk on every operation")
	rootCmd.Flags().BoolVar(&silent, "silent", false,
		"disable audible key feedback")
	rootCmd.Flags().BoolVar(&debugLog, "debug", false,
		"write a debug log next to the counter file")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := app.Config{
		Path:     args[0],
		DataSync: !noSync,
	}
	if len(args) == 2 {
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid start value %q", args[1])
		}
		cfg.Start = &v
	}

	logger, closeLog, err := setupLogging(debugLog, cfg.Path)
	if err != nil {
		return err
	}
	defer closeLog()
	cfg.Logger = logger

	sess := terminal.NewSession()
	if err := sess.Open(); err != nil {
		return err
	}
	// Restored on every return path, including recovery-quit and I/O
	// failures, so the shell never ends up in raw mode
	defer sess.Close()

	sounds := sound.NewPlayer(silent)
	defer sounds.Close()

	return app.New(cfg, sess, sounds).Run(afero.NewOsFs())
}

func main() {
	// Panic recovery: restore the terminal even if the loop crashes
	defer func() {
		if r := recover(); r != nil {
			terminal.EmergencyReset(os.Stdout)
			fmt.Fprintf(os.Stderr, "\r\ntally crashed: %v\r\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", rtdebug.Stack())
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, app.ErrAborted) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
