package stream

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// MaxFrameSize bounds a single line of the event stream.
const MaxFrameSize = 1024 * 1024

// ErrFrameTooLarge is returned by Next for a frame holding a line longer than
// MaxFrameSize. The frame is skipped and the reader stays usable.
var ErrFrameTooLarge = errors.New("event stream frame too large")

// Frame is one dispatched block of the text/event-stream wire format.
type Frame struct {
	// Event is the value of the "event:" field; empty for unnamed frames.
	Event string

	// Data holds the "data:" lines joined with "\n".
	Data string

	// HasData reports whether any "data:" line was present.
	HasData bool

	// ID is the value of the "id:" field, if any.
	ID string

	// Retry is the reconnection delay requested by the server.
	Retry time.Duration

	// Comment holds the text of ":" lines, joined with "\n".
	Comment string
}

// IsComment reports whether the frame carried nothing but comment lines.
func (f *Frame) IsComment() bool {
	return f.Comment != "" && f.Event == "" && !f.HasData && f.ID == ""
}

// FrameReader splits an event stream into frames.
type FrameReader struct {
	reader *bufio.Reader
	first  bool
}

// NewFrameReader returns a FrameReader reading from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{reader: bufio.NewReaderSize(r, 64*1024), first: true}
}

// Next returns the next frame. It returns io.EOF when the stream ends; a
// trailing block without its terminating blank line is dropped.
func (r *FrameReader) Next() (*Frame, error) {
	var (
		f       Frame
		data    []string
		comment []string
		seen    bool
		tooBig  bool
	)

	for {
		line, tooLong, err := r.readLine()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if r.first {
			line = strings.TrimPrefix(line, "\ufeff")
			r.first = false
		}
		if tooLong {
			seen, tooBig = true, true
			continue
		}

		if line == "" {
			if !seen {
				continue
			}
			if tooBig {
				return nil, ErrFrameTooLarge
			}
			f.Data = strings.Join(data, "\n")
			f.Comment = strings.Join(comment, "\n")
			return &f, nil
		}
		seen = true

		if strings.HasPrefix(line, ":") {
			comment = append(comment, strings.TrimSpace(line[1:]))
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			f.Event = value
		case "data":
			f.HasData = true
			data = append(data, value)
		case "id":
			if !strings.ContainsRune(value, 0) {
				f.ID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				f.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// MaxFrameSize is consumed and reported as tooLong with no content.
func (r *FrameReader) readLine() (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, more, err := r.reader.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > MaxFrameSize {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !more {
			return string(buf), tooLong, nil
		}
	}
}

// splitField splits "field: value", dropping a single space after the colon.
func splitField(line string) (string, string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return line, ""
	}
	value := line[i+1:]
	value = strings.TrimPrefix(value, " ")
	return line[:i], value
}

// isBlank reports whether data is empty or whitespace.
func isBlank(data string) bool {
	return strings.TrimSpace(data) == ""
}
