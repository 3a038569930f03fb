package reconcile

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/testops/taskwatch/internal/task"
)

// DefaultCacheSize is the number of task details remembered.
const DefaultCacheSize = 64

// DetailCache remembers the most complete detail seen per task, so
// re-selecting a task shows its tests and metrics before a fetch returns.
type DetailCache struct {
	cache *lru.Cache[string, task.Task]
}

// NewDetailCache creates a cache holding up to size details. Non-positive
// sizes fall back to DefaultCacheSize.
func NewDetailCache(size int) *DetailCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, task.Task](size)
	if err != nil {
		// Only returned for non-positive sizes.
		panic(err)
	}
	return &DetailCache{cache: cache}
}

// Get returns a copy of the cached detail for id.
func (c *DetailCache) Get(id string) (task.Task, bool) {
	t, ok := c.cache.Get(id)
	if !ok {
		return task.Task{}, false
	}
	return t.Clone(), true
}

// Put merges t into the cached entry, keeping detail the entry already had.
func (c *DetailCache) Put(t task.Task) {
	if t.RequestID == "" {
		return
	}
	if prior, ok := c.cache.Peek(t.RequestID); ok {
		t = MergeDetail(&prior, t)
	} else {
		t = t.Clone()
	}
	c.cache.Add(t.RequestID, t)
}

// Len returns the number of cached details.
func (c *DetailCache) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *DetailCache) Purge() {
	c.cache.Purge()
}
