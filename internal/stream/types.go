// Package stream consumes the gateway's per-task event feed. Raw frames are
// classified into a small event vocabulary and delivered in order to a single
// reader, with reconnection on transient failures.
package stream

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies a classified stream event.
type Kind string

const (
	// KindProgress is an intermediate progress notification.
	KindProgress Kind = "progress"
	// KindCompleted is the terminal success notification.
	KindCompleted Kind = "completed"
	// KindFailed is a terminal failure, either from an error frame or
	// from the transport giving up.
	KindFailed Kind = "failed"
)

// Frame names used on the wire.
const (
	frameMessage   = "message"
	frameProgress  = "progress"
	frameCompleted = "completed"
	frameError     = "error"
)

// MessageStreamClosed is the failure message for an error frame without a body.
const MessageStreamClosed = "connection or stream closed"

// Event is a classified stream frame.
type Event struct {
	Kind Kind `json:"kind"`

	// TaskID is extracted from the payload. It is empty for failures raised
	// by the transport and for payloads that do not name their task.
	TaskID string `json:"task_id,omitempty"`

	// Payload is the frame body when it was valid JSON.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Message is a human-readable summary, set for failures.
	Message string `json:"message,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// IsTerminal reports whether the event ends its subscription.
func (e *Event) IsTerminal() bool {
	return e.Kind == KindCompleted || e.Kind == KindFailed
}

// Progress decodes the payload into the gateway's progress shape.
func (e *Event) Progress() (*Progress, error) {
	var p Progress
	if len(e.Payload) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", e.Kind, err)
	}
	return &p, nil
}

func (e *Event) String() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s task=%q: %s", e.Kind, e.TaskID, e.Message)
	default:
		return fmt.Sprintf("%s task=%q", e.Kind, e.TaskID)
	}
}

// Progress is the payload published by the task engine while a job runs.
// Every field is optional.
type Progress struct {
	RequestID     string         `json:"request_id,omitempty"`
	Status        string         `json:"-"`
	Step          string         `json:"step,omitempty"`
	Progress      *int           `json:"progress,omitempty"`
	TestsCount    *int           `json:"tests_count,omitempty"`
	Error         string         `json:"error,omitempty"`
	Message       string         `json:"message,omitempty"`
	ResultSummary map[string]any `json:"result_summary,omitempty"`
}

// UnmarshalJSON accepts "status" either as a plain string or as a nested
// status object carrying its own request_id and status.
func (p *Progress) UnmarshalJSON(data []byte) error {
	type plain Progress
	var aux struct {
		*plain
		Status json.RawMessage `json:"status"`
	}
	aux.plain = (*plain)(p)
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Status) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.Status, &s); err == nil {
		p.Status = s
		return nil
	}
	var nested struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(aux.Status, &nested); err == nil {
		p.Status = nested.Status
		if p.RequestID == "" {
			p.RequestID = nested.RequestID
		}
	}
	return nil
}

// ExtractTaskID returns the task identifier embedded in a payload: the
// top-level request_id, then status.request_id. It returns "" when neither
// is a non-empty string.
func ExtractTaskID(payload []byte) string {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return ""
	}
	if id := rawString(top["request_id"]); id != "" {
		return id
	}
	var status map[string]json.RawMessage
	if err := json.Unmarshal(top["status"], &status); err != nil {
		return ""
	}
	return rawString(status["request_id"])
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Update is delivered to the subscription reader for every classified event
// and every change in connectivity.
type Update struct {
	// Event is nil for pure connectivity changes.
	Event *Event

	Connected bool
}
