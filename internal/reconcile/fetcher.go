package reconcile

import (
	"context"
	"sync/atomic"

	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/task"
	"golang.org/x/sync/singleflight"
)

// DetailGetter loads one task with its nested collections.
type DetailGetter interface {
	GetTask(ctx context.Context, id string, opts api.DetailOptions) (*task.Task, error)
}

// Fetcher loads full task detail, collapsing concurrent requests for the
// same task into one call.
type Fetcher struct {
	getter DetailGetter
	group  singleflight.Group

	// waiting counts callers currently inside Fetch.
	waiting atomic.Int32
}

// NewFetcher creates a Fetcher.
func NewFetcher(getter DetailGetter) *Fetcher {
	return &Fetcher{getter: getter}
}

// Fetch returns the task's detail with tests and metrics. Callers that join
// an in-flight request share its result and its context.
func (f *Fetcher) Fetch(ctx context.Context, id string) (task.Task, error) {
	f.waiting.Add(1)
	defer f.waiting.Add(-1)

	v, err, _ := f.group.Do(id, func() (any, error) {
		t, err := f.getter.GetTask(ctx, id, api.FullDetail)
		if err != nil {
			return nil, err
		}
		return *t, nil
	})
	if err != nil {
		return task.Task{}, err
	}
	return v.(task.Task).Clone(), nil
}

// Forget drops any in-flight request for id so the next Fetch starts anew.
func (f *Fetcher) Forget(id string) {
	f.group.Forget(id)
}
