package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		row, col int
		want     string
	}{
		{"origin", 1, 1, "\033[1;1H"},
		{"row 5 col 10", 5, 10, "\033[5;10H"},
		{"large values", 100, 200, "\033[100;200H"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CursorTo(tt.row, tt.col))
		})
	}
}

func TestTerminalOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		do   func(*Terminal)
		want string
	}{
		{"write", func(term *Terminal) { term.Write("hi") }, "hi"},
		{"clear", func(term *Terminal) { term.Clear() }, ClearScreen + CursorHome},
		{"hide cursor", func(term *Terminal) { term.HideCursor() }, CursorHide},
		{"show cursor", func(term *Terminal) { term.ShowCursor() }, CursorShow},
		{"bell", func(term *Terminal) { term.RingBell() }, Bell},
		{"alt screen", func(term *Terminal) { term.EnterAltScreen(); term.ExitAltScreen() }, AltScreenOn + AltScreenOff},
		{
			"write lines",
			func(term *Terminal) { term.WriteLines([]string{"one", "two"}) },
			CursorTo(1, 1) + "one" + ClearLine + CursorTo(2, 1) + "two" + ClearLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.do(NewTerminal(&buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestTerminal_NotATTY(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	term := NewTerminalWithInput(r, &bytes.Buffer{})
	assert.False(t, term.IsTerminal())
	assert.Error(t, term.EnterRaw())
	assert.False(t, term.IsRaw())
	assert.NoError(t, term.ExitRaw(), "exit without raw mode is a no-op")

	_, _, err = term.Size()
	assert.Error(t, err)
}

func TestTerminal_Read(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	_, err = w.Write([]byte("q"))
	require.NoError(t, err)
	w.Close()

	key, err := NewKeyReader(NewTerminalWithInput(r, &bytes.Buffer{})).ReadKey()
	require.NoError(t, err)
	assert.Equal(t, KeyEvent{Key: KeyRune, Rune: 'q'}, key)
}

func devNull(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
