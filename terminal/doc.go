// Package terminal provides direct ANSI terminal control for single-line
// keystroke prompts.
//
// Features:
//   - Raw stdin input parsing with escape sequence handling
//   - Scoped raw-mode and cursor-visibility lifecycle
//   - Clean terminal restoration on exit/panic
//
// This package bypasses terminfo/termcap entirely, emitting direct ANSI
// sequences. Target environments: Linux, macOS, BSDs with xterm-compatible
// terminals.
package terminal
