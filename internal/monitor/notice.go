package monitor

import (
	"errors"
	"time"

	"github.com/testops/taskwatch/internal/api"
)

// NoticeKind classifies a user-visible notice.
type NoticeKind string

const (
	// NoticeTransport means the gateway could not be reached; the view keeps
	// its last known state.
	NoticeTransport NoticeKind = "transport"
	// NoticeDomain is a request the gateway rejected, such as a resume of a
	// task that cannot be resumed.
	NoticeDomain NoticeKind = "domain"
	// NoticeStream is a stream failure that names no task.
	NoticeStream NoticeKind = "stream"
	// NoticeParse is a response the client could not decode.
	NoticeParse NoticeKind = "parse"
)

// Notice is a dismissible message shown near the control that caused it.
type Notice struct {
	Kind    NoticeKind `json:"kind" yaml:"kind"`
	Message string     `json:"message" yaml:"message"`

	// TaskID is set when the notice concerns one task.
	TaskID string    `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	At     time.Time `json:"at" yaml:"at"`
}

// noticeFor classifies err.
func noticeFor(err error, taskID string, now time.Time) *Notice {
	n := &Notice{Message: api.UserMessage(err), TaskID: taskID, At: now}
	var de *api.DecodeError
	switch {
	case api.IsDomain(err):
		n.Kind = NoticeDomain
	case errors.As(err, &de):
		n.Kind = NoticeParse
	default:
		n.Kind = NoticeTransport
	}
	return n
}
