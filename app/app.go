// Package app wires the counter store, the keystroke reader and the
// feedback layers into the interactive counting loop.
package app

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/lixenwraith/tally/choice"
	"github.com/lixenwraith/tally/counter"
	"github.com/lixenwraith/tally/sound"
	"github.com/lixenwraith/tally/terminal"
)

// ErrAborted reports that the user chose to quit from the recovery
// dialog. The caller exits non-zero without printing an error.
var ErrAborted = errors.New("aborted by user")

// Console is the terminal surface the loop needs; *terminal.Session
// implements it, tests use scripted events.
type Console interface {
	choice.Source

	// Println prints a transient notice as a normal line, leaving and
	// re-entering raw mode around it.
	Println(string) error
}

// Config carries the resolved command-line options.
type Config struct {
	// Path of the counter file.
	Path string

	// Start overrides file-derived state when non-nil.
	Start *int64

	// DataSync forces a durability flush on every persist.
	DataSync bool

	// Logger for debug events; nil means no logging.
	Logger *zap.Logger
}

type action uint8

const (
	actionIncrement action = iota
	actionDecrement
	actionQuit
)

type confirmation uint8

const (
	confirmYes confirmation = iota
	confirmNo
	confirmQuit
)

type state uint8

const (
	stateRunning state = iota
	stateQuitting
)

// App runs the interaction loop. It owns the single counter instance
// for the process lifetime; nothing else mutates it.
type App struct {
	cfg    Config
	con    Console
	sounds *sound.Player
	log    *zap.Logger

	counter *counter.FileCounter
	state   state
}

// New assembles the controller. sounds may be nil.
func New(cfg Config, con Console, sounds *sound.Player) *App {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &App{cfg: cfg, con: con, sounds: sounds, log: log}
}

// Run loads or creates the counter, handles recovery of invalid file
// content, persists the starting value and enters the key loop.
// The caller restores the terminal; Run never exits the process.
func (a *App) Run(fs afero.Fs) error {
	c, invalid, err := counter.Open(fs, a.cfg.Path, counter.Options{
		Start:    a.cfg.Start,
		DataSync: a.cfg.DataSync,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if invalid {
		switch conf, err := a.confirmOverwrite(); {
		case err != nil:
			return err
		case conf == confirmQuit:
			return ErrAborted
		case conf == confirmNo:
			// File stays untouched
			return counter.ErrInvalidData
		}
	}

	a.counter = c

	// Write the starting value up front so quitting without any key
	// leaves the file equal to the initial state
	if err := c.Persist(); err != nil {
		return err
	}
	a.log.Debug("counter ready",
		zap.String("path", a.cfg.Path),
		zap.Int64("value", c.Value()),
		zap.Bool("data_sync", a.cfg.DataSync))

	return a.loop()
}

// confirmOverwrite asks whether unparseable file content may be
// discarded.
func (a *App) confirmOverwrite() (confirmation, error) {
	const prompt = "File contains non-counter data. Use anyway? (data will be lost!)  [y/n]"

	bindings := map[choice.Chord]confirmation{
		choice.Rune('y'): confirmYes,
		choice.Rune('Y'): confirmYes,
		choice.Rune('n'): confirmNo,
		choice.Rune('N'): confirmNo,
		choice.Rune('q'): confirmQuit,
		choice.Rune('Q'): confirmQuit,
		choice.Ctrl('c'): confirmQuit,
	}

	c, err := choice.Read(a.con, prompt, bindings)
	if err != nil {
		return confirmQuit, err
	}
	a.log.Debug("recovery choice", zap.Uint8("choice", uint8(c)))
	return c, nil
}

func (a *App) loop() error {
	bindings := map[choice.Chord]action{
		// Increment keys
		choice.Rune('+'): actionIncrement,
		choice.Rune('='): actionIncrement, // '+' without shift
		choice.Rune(' '): actionIncrement,
		// Decrement keys
		choice.Rune('-'):                  actionDecrement,
		choice.Rune('_'):                  actionDecrement, // '-' with shift
		choice.Key(terminal.KeyBackspace): actionDecrement,
		// Quit keys
		choice.Rune('q'): actionQuit,
		choice.Rune('Q'): actionQuit,
		choice.Ctrl('c'): actionQuit,
	}

	for a.state == stateRunning {
		prompt := fmt.Sprintf("Count: %d    [+/-/q]", a.counter.Value())

		act, err := choice.Read(a.con, prompt, bindings)
		if err != nil {
			return err
		}

		switch act {
		case actionIncrement:
			if err := a.apply(a.counter.Increment, "overflow!"); err != nil {
				return err
			}
		case actionDecrement:
			if err := a.apply(a.counter.Decrement, "underflow!"); err != nil {
				return err
			}
		case actionQuit:
			a.state = stateQuitting
		}
	}

	a.log.Debug("quitting", zap.Int64("value", a.counter.Value()))
	return nil
}

// apply runs one mutation. Boundary conditions are notices, not
// failures: the value and file are unchanged and the loop continues.
// I/O errors are fatal.
func (a *App) apply(op func() error, notice string) error {
	err := op()
	switch {
	case err == nil:
		a.sounds.Tick()
		a.log.Debug("persisted", zap.Int64("value", a.counter.Value()))
		return nil
	case errors.Is(err, counter.ErrOverflow) || errors.Is(err, counter.ErrUnderflow):
		a.sounds.Buzz()
		a.log.Debug("boundary reached", zap.String("notice", notice))
		return a.con.Println(notice)
	default:
		return err
	}
}
