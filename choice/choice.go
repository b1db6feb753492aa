// Package choice implements a blocking "press one key, get one logical
// value" primitive. The caller supplies the key bindings, so the same
// reader serves both the main counter prompt and confirmation dialogs.
package choice

import (
	"github.com/lixenwraith/tally/terminal"
)

// Chord identifies a single physical key press in a binding map.
// Comparable so it can be used as a map key.
type Chord struct {
	Key       terminal.Key
	Rune      rune
	Modifiers terminal.Modifier
}

// Rune binds a printable character.
func Rune(r rune) Chord {
	return Chord{Key: terminal.KeyRune, Rune: r}
}

// Key binds a non-printable key.
func Key(k terminal.Key) Chord {
	return Chord{Key: k}
}

// Ctrl binds Ctrl+letter; r must be a lowercase ASCII letter.
func Ctrl(r rune) Chord {
	return Chord{Key: terminal.KeyCtrlA + terminal.Key(r-'a')}
}

// Source is the terminal surface the reader needs. *terminal.Session
// implements it; tests supply scripted events.
type Source interface {
	// Prompt renders the prompt line, overwriting previous content.
	Prompt(string) error
	// ReadEvent blocks until the next key event.
	ReadEvent() (terminal.Event, error)
}

// Read blocks until a key matching bindings is pressed and returns the
// bound value. Unmatched keys are silently ignored: the prompt is
// re-rendered and the wait continues. There is no timeout; the call
// ends only through a matched binding or a read error.
func Read[T any](src Source, prompt string, bindings map[Chord]T) (T, error) {
	var zero T
	for {
		if err := src.Prompt(prompt); err != nil {
			return zero, err
		}

		ev, err := src.ReadEvent()
		if err != nil {
			return zero, err
		}

		c := Chord{Key: ev.Key, Rune: ev.Rune, Modifiers: ev.Modifiers}
		if v, ok := bindings[c]; ok {
			return v, nil
		}
	}
}
