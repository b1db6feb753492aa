package terminal

import "unicode/utf8"

// decoder assembles raw stdin bytes into key events.
// A persistent buffer carries partial escape and UTF-8 sequences across
// read boundaries.
type decoder struct {
	buf []byte
	out []Event
}

// feed appends raw bytes, parses as much as possible and returns the
// decoded events. The returned slice is reused by the next call.
func (d *decoder) feed(data []byte) []Event {
	d.buf = append(d.buf, data...)
	d.out = d.out[:0]

	consumed := d.parse(d.buf)

	// Compact buffer
	if consumed > 0 {
		if consumed >= len(d.buf) {
			d.buf = d.buf[:0]
		} else {
			copy(d.buf, d.buf[consumed:])
			d.buf = d.buf[:len(d.buf)-consumed]
		}
	}
	return d.out
}

// pendingEscape reports whether a lone ESC is buffered, awaiting either a
// sequence continuation or the escape timeout.
func (d *decoder) pendingEscape() bool {
	return len(d.buf) == 1 && d.buf[0] == 0x1b
}

// flushEscape emits the buffered standalone ESC once the escape timeout
// elapsed without further bytes.
func (d *decoder) flushEscape() (Event, bool) {
	if !d.pendingEscape() {
		return Event{}, false
	}
	d.buf = d.buf[:0]
	return Event{Key: KeyEscape}, true
}

// parse decodes events from data and returns bytes consumed
// (stops on an incomplete sequence)
func (d *decoder) parse(data []byte) int {
	i := 0
	n := len(data)

	for i < n {
		b := data[i]

		// Fast path: printable ASCII
		if b >= 0x20 && b < 0x7f {
			d.emit(Event{Key: KeyRune, Rune: rune(b)})
			i++
			continue
		}

		// Escape sequence
		if b == 0x1b {
			// Need at least 2 bytes to determine sequence type
			if i+1 >= n {
				return i // Wait for more data
			}

			consumed, ev := parseEscape(data[i:])
			if consumed == 0 {
				// Incomplete sequence, wait for more data
				return i
			}

			// Swallow unknown-but-valid sequences (KeyNone)
			if ev.Key != KeyNone {
				d.emit(ev)
			}
			i += consumed
			continue
		}

		// Control characters
		if b < 0x20 {
			d.emit(parseControl(b))
			i++
			continue
		}

		// DEL
		if b == 0x7f {
			d.emit(Event{Key: KeyBackspace})
			i++
			continue
		}

		// UTF-8 multibyte
		seqLen := utf8SeqLen(b)
		if seqLen == 0 {
			// Invalid start byte, skip
			i++
			continue
		}
		if i+seqLen > n {
			// Incomplete UTF-8, wait for more data
			return i
		}
		rn, size := utf8.DecodeRune(data[i:])
		d.emit(Event{Key: KeyRune, Rune: rn})
		i += size
	}
	return i
}

func (d *decoder) emit(ev Event) {
	d.out = append(d.out, ev)
}

// utf8SeqLen returns expected UTF-8 sequence length from start byte, 0 if invalid
func utf8SeqLen(b byte) int {
	if b < 0x80 {
		return 1
	}
	if b&0xe0 == 0xc0 {
		return 2
	}
	if b&0xf0 == 0xe0 {
		return 3
	}
	if b&0xf8 == 0xf0 {
		return 4
	}
	return 0 // Invalid
}

// parseEscape attempts to parse an escape sequence, returns 0 on incomplete
func parseEscape(data []byte) (int, Event) {
	if len(data) < 2 {
		return 0, Event{} // Incomplete, wait for more
	}

	// ESC ESC -> Alt+Escape
	if data[1] == 0x1b {
		return 2, Event{Key: KeyEscape, Modifiers: ModAlt}
	}

	if data[1] == '[' {
		return parseCSI(data)
	}
	if data[1] == 'O' {
		return parseSS3(data)
	}

	// Alt+Control character (ESC + 0x00-0x1F)
	if data[1] < 0x20 {
		ev := parseControl(data[1])
		ev.Modifiers |= ModAlt
		return 2, ev
	}

	// Alt+printable
	if data[1] >= 0x20 && data[1] < 0x7f {
		return 2, Event{Key: KeyRune, Rune: rune(data[1]), Modifiers: ModAlt}
	}

	return 0, Event{}
}

// parseCSI parses a CSI sequence without allocation
func parseCSI(data []byte) (int, Event) {
	if len(data) < 3 {
		return 0, Event{}
	}

	end := 2
	maxScan := len(data)
	if maxScan > 16 {
		maxScan = 16
	}

	for end < maxScan {
		b := data[end]
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
			end++
			break
		}
		if b < 0x20 || b > 0x7e {
			return 0, Event{}
		}
		end++
	}

	if end <= 2 || end > maxScan {
		return 0, Event{} // Incomplete
	}

	// Check last byte is a valid terminator
	lastByte := data[end-1]
	if !((lastByte >= 'A' && lastByte <= 'Z') || (lastByte >= 'a' && lastByte <= 'z') || lastByte == '~') {
		return 0, Event{} // Incomplete, no terminator found
	}

	if key, mod, ok := lookupCSI(data[2:end]); ok {
		return end, Event{Key: key, Modifiers: mod}
	}

	// Unknown but valid CSI syntax - consume and return KeyNone
	return end, Event{Key: KeyNone}
}

// parseSS3 parses an SS3 sequence, returns length even for unknown sequences
func parseSS3(data []byte) (int, Event) {
	if len(data) < 3 {
		return 0, Event{}
	}
	if key, mod, ok := lookupSS3(data[2:3]); ok {
		return 3, Event{Key: key, Modifiers: mod}
	}
	// Unknown SS3 - consume to prevent garbage
	return 3, Event{Key: KeyNone}
}

// parseControl maps control characters to keys. Backspace, Tab and Enter
// claim their bytes before the generic Ctrl+letter mapping.
func parseControl(b byte) Event {
	switch b {
	case 0x00: // Ctrl+Space or Ctrl+@
		return Event{Key: KeyCtrlSpace}
	case 0x08: // Ctrl+H or Backspace
		return Event{Key: KeyBackspace}
	case 0x09: // Tab
		return Event{Key: KeyTab}
	case 0x0a, 0x0d: // LF, CR (Enter)
		return Event{Key: KeyEnter}
	case 0x1b: // ESC (shouldn't reach here normally)
		return Event{Key: KeyEscape}
	case 0x1c:
		return Event{Key: KeyCtrlBackslash}
	case 0x1d:
		return Event{Key: KeyCtrlBracketRight}
	case 0x1e:
		return Event{Key: KeyCtrlCaret}
	case 0x1f:
		return Event{Key: KeyCtrlUnderscore}
	}
	if b >= 0x01 && b <= 0x1a {
		return Event{Key: KeyCtrlA + Key(b-0x01)}
	}
	return Event{Key: KeyNone}
}
