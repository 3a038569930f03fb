package reconcile

import (
	"github.com/testops/taskwatch/internal/stream"
	"github.com/testops/taskwatch/internal/task"
)

// Decision is what the caller should do with a stream event.
type Decision int

const (
	// Ignore leaves the selected detail untouched.
	Ignore Decision = iota
	// Refetch asks for a full detail fetch of the selected task.
	Refetch
)

func (d Decision) String() string {
	switch d {
	case Refetch:
		return "refetch"
	default:
		return "ignore"
	}
}

// Policy applies merges for the selected task and feeds the detail cache.
type Policy struct {
	cache *DetailCache
}

// NewPolicy creates a Policy backed by cache. cache may be nil.
func NewPolicy(cache *DetailCache) *Policy {
	return &Policy{cache: cache}
}

// Cache returns the policy's detail cache, or nil.
func (p *Policy) Cache() *DetailCache {
	return p.cache
}

// Seed returns the detail to show immediately after selectedID is chosen:
// the directory summary overlaid on any cached detail.
func (p *Policy) Seed(selectedID string, summary *task.Task) *task.Task {
	if selectedID == "" {
		return nil
	}
	var cached *task.Task
	if p.cache != nil {
		if c, ok := p.cache.Get(selectedID); ok {
			cached = &c
		}
	}
	switch {
	case summary != nil && summary.RequestID == selectedID:
		merged := MergeDetail(cached, *summary)
		return &merged
	case cached != nil:
		return cached
	default:
		return &task.Task{RequestID: selectedID}
	}
}

// MergePollUpdate merges the selected task's entry from a poll into current.
// It returns current and false when nothing is selected or the poll does not
// mention the selected task.
func (p *Policy) MergePollUpdate(current *task.Task, selectedID string, tasks []task.Task) (*task.Task, bool) {
	if selectedID == "" {
		return current, false
	}
	for i := range tasks {
		if tasks[i].RequestID != selectedID {
			continue
		}
		merged := MergeDetail(current, tasks[i])
		return &merged, true
	}
	return current, false
}

// MergeStreamEvent decides whether ev warrants re-fetching the selected
// task. Events for other tasks, or that name no task, are ignored.
func (p *Policy) MergeStreamEvent(selectedID string, ev *stream.Event) Decision {
	if ev == nil || selectedID == "" || ev.TaskID != selectedID {
		return Ignore
	}
	return Refetch
}

// MergeFetchedDetail records fetched in the cache and, when it belongs to
// the selected task, merges it into current.
func (p *Policy) MergeFetchedDetail(current *task.Task, selectedID string, fetched task.Task) (*task.Task, bool) {
	if p.cache != nil {
		p.cache.Put(fetched)
	}
	if selectedID == "" || fetched.RequestID != selectedID {
		return current, false
	}
	merged := MergeDetail(current, fetched)
	return &merged, true
}
