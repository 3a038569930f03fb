// Package directory keeps the polled collection of task summaries. The
// currently selected task is never dropped from the collection, even when a
// poll no longer returns it.
package directory

import (
	"context"
	"sync"

	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/task"
)

// Lister fetches one page of tasks.
type Lister interface {
	ListTasks(ctx context.Context, opts api.ListOptions) ([]task.Task, error)
}

// DefaultPageSize matches the page the web dashboard requests.
const DefaultPageSize = 50

// Directory holds the last known task collection, newest first.
type Directory struct {
	lister   Lister
	pageSize int

	// mu protects the fields below
	mu     sync.RWMutex
	tasks  []task.Task
	filter task.State
}

// New creates an empty Directory.
func New(lister Lister, pageSize int) *Directory {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Directory{lister: lister, pageSize: pageSize}
}

// Fetch lists tasks matching filter without touching the collection.
// Concrete states are filtered by the gateway; the "processing" group is
// filtered locally because it spans several states.
func (d *Directory) Fetch(ctx context.Context, filter task.State) ([]task.Task, error) {
	opts := api.ListOptions{Limit: d.pageSize}
	if filter != task.StateProcessing {
		opts.Status = filter
	}

	tasks, err := d.lister.ListTasks(ctx, opts)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return tasks, nil
	}

	out := tasks[:0:0]
	for _, t := range tasks {
		if t.Status.Matches(filter) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Apply replaces the collection with tasks. If selectedID is set and missing
// from tasks, its last known entry is kept at its previous position.
func (d *Directory) Apply(tasks []task.Task, selectedID string) {
	next := task.CloneAll(tasks)
	if next == nil {
		next = []task.Task{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if selectedID != "" && indexOf(next, selectedID) < 0 {
		if i := indexOf(d.tasks, selectedID); i >= 0 {
			pinned := d.tasks[i]
			pos := min(i, len(next))
			next = append(next, task.Task{})
			copy(next[pos+1:], next[pos:])
			next[pos] = pinned
		}
	}
	d.tasks = next
}

// Refresh fetches with the current filter and applies the result. On error
// the collection is left untouched.
func (d *Directory) Refresh(ctx context.Context, selectedID string) error {
	tasks, err := d.Fetch(ctx, d.Filter())
	if err != nil {
		return err
	}
	d.Apply(tasks, selectedID)
	return nil
}

// Upsert replaces the entry with the same identifier, or prepends t.
func (d *Directory) Upsert(t task.Task) {
	t = t.Clone()

	d.mu.Lock()
	defer d.mu.Unlock()

	if i := indexOf(d.tasks, t.RequestID); i >= 0 {
		d.tasks[i] = t
		return
	}
	d.tasks = append([]task.Task{t}, d.tasks...)
}

// Get returns a copy of the entry for id.
func (d *Directory) Get(id string) (task.Task, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if i := indexOf(d.tasks, id); i >= 0 {
		return d.tasks[i].Clone(), true
	}
	return task.Task{}, false
}

// Tasks returns a copy of the collection.
func (d *Directory) Tasks() []task.Task {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return task.CloneAll(d.tasks)
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tasks)
}

// Filter returns the active lifecycle filter; "" means all tasks.
func (d *Directory) Filter() task.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filter
}

// SetFilter changes the filter and reports whether it changed.
func (d *Directory) SetFilter(f task.State) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.filter == f {
		return false
	}
	d.filter = f
	return true
}

func indexOf(tasks []task.Task, id string) int {
	for i := range tasks {
		if tasks[i].RequestID == id {
			return i
		}
	}
	return -1
}
