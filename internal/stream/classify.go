package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDiscard is returned by Classify for frames that carry no data:
// keep-alives, comments, blank frames and unknown event names.
var ErrDiscard = errors.New("frame discarded")

// ParseError reports a progress frame whose body is not valid JSON. The frame
// is dropped; the subscription continues.
type ParseError struct {
	Event string
	Data  string
	Err   error
}

func (e *ParseError) Error() string {
	data := e.Data
	if len(data) > 120 {
		data = data[:120] + "..."
	}
	return fmt.Sprintf("malformed %s frame %q: %v", e.Event, data, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var emptyObject = json.RawMessage(`{}`)

// Classify turns a frame into an Event. It returns ErrDiscard or a
// *ParseError when the frame produces no event.
func Classify(f *Frame, now time.Time) (*Event, error) {
	if f == nil || f.IsComment() {
		return nil, ErrDiscard
	}

	switch f.Event {
	case "", frameMessage, frameProgress:
		return classifyProgress(f, now)
	case frameCompleted:
		return classifyCompleted(f, now), nil
	case frameError:
		return classifyError(f, now), nil
	default:
		return nil, ErrDiscard
	}
}

// isHeartbeat matches keep-alives that arrive as data on the unnamed or
// progress channel, such as a "data: :heartbeat" line produced by servers
// that wrap comments. Terminal frames are never treated as keep-alives.
func isHeartbeat(data string) bool {
	return strings.HasPrefix(strings.TrimSpace(data), ":")
}

func classifyProgress(f *Frame, now time.Time) (*Event, error) {
	name := f.Event
	if name == "" {
		name = frameMessage
	}
	if isBlank(f.Data) || isHeartbeat(f.Data) {
		return nil, ErrDiscard
	}

	payload, err := compactObject(f.Data)
	if err != nil {
		return nil, &ParseError{Event: name, Data: f.Data, Err: err}
	}
	return &Event{
		Kind:       KindProgress,
		TaskID:     ExtractTaskID(payload),
		Payload:    payload,
		ReceivedAt: now,
	}, nil
}

// classifyCompleted never fails: a missing or unreadable body still
// completes the task, with an empty payload.
func classifyCompleted(f *Frame, now time.Time) *Event {
	payload := emptyObject
	if !isBlank(f.Data) {
		if p, err := compactObject(f.Data); err == nil {
			payload = p
		}
	}
	return &Event{
		Kind:       KindCompleted,
		TaskID:     ExtractTaskID(payload),
		Payload:    payload,
		ReceivedAt: now,
	}
}

func classifyError(f *Frame, now time.Time) *Event {
	if isBlank(f.Data) {
		return &Event{Kind: KindFailed, Message: MessageStreamClosed, ReceivedAt: now}
	}

	payload, err := compactObject(f.Data)
	if err != nil {
		return &Event{Kind: KindFailed, Message: strings.TrimSpace(f.Data), ReceivedAt: now}
	}
	return &Event{
		Kind:       KindFailed,
		TaskID:     ExtractTaskID(payload),
		Payload:    payload,
		Message:    failureMessage(payload),
		ReceivedAt: now,
	}
}

// compactObject validates that data is JSON and returns it compacted.
func compactObject(data string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(strings.TrimSpace(data))); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// failureMessage picks the first string among the usual error fields.
func failureMessage(payload json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "task failed"
	}
	for _, key := range []string{"error", "error_message", "message", "detail"} {
		if s := rawString(fields[key]); s != "" {
			return s
		}
	}
	return "task failed"
}
