//go:build unix

package terminal

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// escapeTimeout is how long to wait after a lone ESC to distinguish a
// standalone ESC press from the start of an escape sequence, in
// milliseconds (unix.Poll granularity).
const escapeTimeout = 50

// Session owns the terminal for the lifetime of an interactive prompt.
// Raw mode and cursor visibility are process-wide state: Open acquires
// them, Close restores them and is safe to call multiple times.
// Single-threaded; no method may be called concurrently.
type Session struct {
	in       *os.File
	out      *os.File
	inFd     int
	oldState *term.State

	dec     decoder
	queue   []Event
	readBuf []byte

	closed bool
}

// NewSession creates a session bound to stdin/stdout.
func NewSession() *Session {
	return &Session{
		in:      os.Stdin,
		out:     os.Stdout,
		inFd:    int(os.Stdin.Fd()),
		readBuf: make([]byte, 256),
	}
}

// Open enters raw mode and hides the cursor.
func (s *Session) Open() error {
	if !term.IsTerminal(s.inFd) {
		return fmt.Errorf("stdin is not a terminal")
	}

	old, err := term.MakeRaw(s.inFd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	s.oldState = old

	_, err = s.out.Write(csiCursorHide)
	return err
}

// Close restores cursor visibility and the original terminal mode, then
// moves past the prompt line. Safe to call multiple times.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.out.Write(csiCursorShow)

	var err error
	if s.oldState != nil {
		err = term.Restore(s.inFd, s.oldState)
	}
	fmt.Fprintln(s.out)
	return err
}

// Prompt clears the current line and renders p at the left margin,
// overwriting previous content.
func (s *Session) Prompt(p string) error {
	buf := make([]byte, 0, len(csiClearLine)+1+len(p))
	buf = append(buf, csiClearLine...)
	buf = append(buf, '\r')
	buf = append(buf, p...)
	_, err := s.out.Write(buf)
	return err
}

// Println prints a normal line outside raw mode: the terminal is
// restored, the line printed, then raw mode re-entered. Used for
// transient notices while the prompt loop runs.
func (s *Session) Println(msg string) error {
	if s.oldState == nil {
		_, err := fmt.Fprintf(s.out, "%s\n", msg)
		return err
	}
	if err := term.Restore(s.inFd, s.oldState); err != nil {
		return fmt.Errorf("leave raw mode: %w", err)
	}
	fmt.Fprintf(s.out, "\n%s\n", msg)
	if _, err := term.MakeRaw(s.inFd); err != nil {
		return fmt.Errorf("re-enter raw mode: %w", err)
	}
	return nil
}

// ReadEvent blocks until the next decoded key event. There is no
// timeout; only a matched quit binding or process termination ends the
// wait. Returns io.EOF when stdin closes.
func (s *Session) ReadEvent() (Event, error) {
	for {
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			return ev, nil
		}

		// Block until input; short timeout only while a lone ESC is
		// pending so it can be emitted as a standalone key
		timeout := -1
		if s.dec.pendingEscape() {
			timeout = escapeTimeout
		}

		fds := []unix.PollFd{
			{Fd: int32(s.inFd), Events: unix.POLLIN},
		}
		n, err := unix.Poll(fds, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return Event{}, err
		}
		if n == 0 {
			if ev, ok := s.dec.flushEscape(); ok {
				return ev, nil
			}
			continue
		}

		rn, err := unix.Read(s.inFd, s.readBuf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return Event{}, err
		}
		if rn == 0 {
			return Event{}, io.EOF
		}

		s.queue = append(s.queue, s.dec.feed(s.readBuf[:rn])...)
	}
}

// EmergencyReset attempts to restore terminal to sane state
// Call this from panic recovery if Close cannot be called normally
func EmergencyReset(w io.Writer) {
	w.Write(csiCursorShow)
	w.Write(csiSGR0)
	w.Write(csiRIS)

	if f, ok := w.(*os.File); ok {
		f.Sync()
	}

	// Attempt raw mode reset via stty - escape sequences alone don't restore termios
	// This is best-effort; ignore errors in crash context
	resetTerminalMode()
}

func resetTerminalMode() {
	cmd := exec.Command("stty", "sane")
	cmd.Stdin = os.Stdin
	_ = cmd.Run()
}
