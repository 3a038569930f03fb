package tui

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// Key represents a keyboard input.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeyBackspace
	KeyTab
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyCtrlC
	KeyCtrlD
	KeyRune // Regular character
)

// KeyEvent represents a key press event.
type KeyEvent struct {
	Key  Key
	Rune rune // Only valid when Key == KeyRune
}

// KeyReader reads keyboard input from a raw terminal.
type KeyReader struct {
	reader *bufio.Reader
}

// NewKeyReader creates a KeyReader from the given io.Reader.
// The reader should be a raw terminal input (e.g., os.Stdin after term.MakeRaw).
func NewKeyReader(r io.Reader) *KeyReader {
	return &KeyReader{
		reader: bufio.NewReaderSize(r, 64),
	}
}

// ReadKey blocks until a key is pressed.
func (k *KeyReader) ReadKey() (KeyEvent, error) {
	b, err := k.reader.ReadByte()
	if err != nil {
		return KeyEvent{}, err
	}

	switch {
	case b == 0x03:
		return KeyEvent{Key: KeyCtrlC}, nil
	case b == 0x04:
		return KeyEvent{Key: KeyCtrlD}, nil
	case b == 0x09:
		return KeyEvent{Key: KeyTab}, nil
	case b == 0x0D, b == 0x0A:
		return KeyEvent{Key: KeyEnter}, nil
	case b == 0x7F, b == 0x08:
		return KeyEvent{Key: KeyBackspace}, nil
	case b == 0x1B:
		return k.readEscape(), nil
	case b >= 0x20 && b < 0x7F:
		return KeyEvent{Key: KeyRune, Rune: rune(b)}, nil
	case b >= 0xC0:
		return k.readUTF8(b)
	}
	return KeyEvent{Key: KeyUnknown}, nil
}

// readEscape distinguishes a lone escape from a CSI or SS3 sequence. A
// sequence arrives in one write, so anything not already buffered is treated
// as a separate key press.
func (k *KeyReader) readEscape() KeyEvent {
	if k.reader.Buffered() == 0 {
		return KeyEvent{Key: KeyEscape}
	}
	b, err := k.reader.ReadByte()
	if err != nil {
		return KeyEvent{Key: KeyEscape}
	}
	if b != '[' && b != 'O' {
		_ = k.reader.UnreadByte()
		return KeyEvent{Key: KeyEscape}
	}
	return k.parseSequence()
}

// parseSequence reads the body of an escape sequence up to its final byte.
func (k *KeyReader) parseSequence() KeyEvent {
	var params []byte
	for {
		b, err := k.reader.ReadByte()
		if err != nil {
			return KeyEvent{Key: KeyUnknown}
		}
		if b >= '0' && b <= '9' || b == ';' {
			params = append(params, b)
			continue
		}

		switch b {
		case 'A':
			return KeyEvent{Key: KeyUp}
		case 'B':
			return KeyEvent{Key: KeyDown}
		case 'C':
			return KeyEvent{Key: KeyRight}
		case 'D':
			return KeyEvent{Key: KeyLeft}
		case 'H':
			return KeyEvent{Key: KeyHome}
		case 'F':
			return KeyEvent{Key: KeyEnd}
		case '~':
			switch string(params) {
			case "1", "7":
				return KeyEvent{Key: KeyHome}
			case "4", "8":
				return KeyEvent{Key: KeyEnd}
			case "5":
				return KeyEvent{Key: KeyPageUp}
			case "6":
				return KeyEvent{Key: KeyPageDown}
			}
		}
		return KeyEvent{Key: KeyUnknown}
	}
}

// readUTF8 reads a multi-byte UTF-8 character.
func (k *KeyReader) readUTF8(first byte) (KeyEvent, error) {
	var buf [utf8.UTFMax]byte
	buf[0] = first

	var n int
	switch {
	case first&0xE0 == 0xC0:
		n = 2
	case first&0xF0 == 0xE0:
		n = 3
	case first&0xF8 == 0xF0:
		n = 4
	default:
		return KeyEvent{Key: KeyUnknown}, nil
	}

	for i := 1; i < n; i++ {
		b, err := k.reader.ReadByte()
		if err != nil {
			return KeyEvent{Key: KeyUnknown}, err
		}
		buf[i] = b
	}

	r, _ := utf8.DecodeRune(buf[:n])
	if r == utf8.RuneError {
		return KeyEvent{Key: KeyUnknown}, nil
	}
	return KeyEvent{Key: KeyRune, Rune: r}, nil
}

// Shortcut is a key binding of the monitor screen.
type Shortcut int

const (
	ShortcutNone     Shortcut = iota
	ShortcutUp                // ↑ / k - move cursor
	ShortcutDown              // ↓ / j - move cursor
	ShortcutTop               // home / g
	ShortcutBottom            // end / G
	ShortcutSelect            // enter - open the task under the cursor
	ShortcutDeselect          // esc - close the detail pane
	ShortcutResume            // r - resume the selected task
	ShortcutFilter            // f - cycle the status filter
	ShortcutDismiss           // x - dismiss the notice
	ShortcutRefresh           // R - poll now
	ShortcutHelp              // ? - toggle help
	ShortcutQuit              // q / ctrl+c
)

// ParseShortcut converts a KeyEvent to a Shortcut.
func ParseShortcut(ev KeyEvent) Shortcut {
	switch ev.Key {
	case KeyUp:
		return ShortcutUp
	case KeyDown:
		return ShortcutDown
	case KeyHome, KeyPageUp:
		return ShortcutTop
	case KeyEnd, KeyPageDown:
		return ShortcutBottom
	case KeyEnter:
		return ShortcutSelect
	case KeyEscape:
		return ShortcutDeselect
	case KeyCtrlC, KeyCtrlD:
		return ShortcutQuit
	case KeyRune:
		switch ev.Rune {
		case 'k':
			return ShortcutUp
		case 'j':
			return ShortcutDown
		case 'g':
			return ShortcutTop
		case 'G':
			return ShortcutBottom
		case 'r':
			return ShortcutResume
		case 'f', 'F':
			return ShortcutFilter
		case 'x', 'X':
			return ShortcutDismiss
		case 'R':
			return ShortcutRefresh
		case '?':
			return ShortcutHelp
		case 'q', 'Q':
			return ShortcutQuit
		}
	}
	return ShortcutNone
}
