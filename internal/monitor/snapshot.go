package monitor

import (
	"time"

	"github.com/testops/taskwatch/internal/stream"
	"github.com/testops/taskwatch/internal/task"
)

// Snapshot is an immutable copy of the monitor state, safe to read from any
// goroutine.
type Snapshot struct {
	Tasks []task.Task `json:"tasks" yaml:"tasks"`

	// SelectedID is the current selection, or "".
	SelectedID string `json:"selected_id,omitempty" yaml:"selected_id,omitempty"`

	// Selected is the merged detail of the selected task.
	Selected *task.Task `json:"selected,omitempty" yaml:"selected,omitempty"`

	// LatestEvent is the last stream event for the selected task.
	LatestEvent *stream.Event `json:"latest_event,omitempty" yaml:"latest_event,omitempty"`

	Connected bool       `json:"connected" yaml:"connected"`
	LastError *Notice    `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	Filter    task.State `json:"filter" yaml:"filter"`
	Location  string     `json:"location" yaml:"location"`
	LastPoll  time.Time  `json:"last_poll" yaml:"last_poll"`
	Version   uint64     `json:"version" yaml:"version"`
}

// Task returns the directory entry for id.
func (s *Snapshot) Task(id string) (task.Task, bool) {
	for _, t := range s.Tasks {
		if t.RequestID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

// IndexOf returns the position of id in Tasks, or -1.
func (s *Snapshot) IndexOf(id string) int {
	for i := range s.Tasks {
		if s.Tasks[i].RequestID == id {
			return i
		}
	}
	return -1
}
