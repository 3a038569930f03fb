package selection

import (
	"strings"
	"sync"
)

// ListLocation is the address of the task list view.
const ListLocation = "/tasks"

// Router is the view's global address, as seen by the selection guard.
type Router interface {
	Location() string
	Replace(location string)
}

// MemoryRouter is a Router that keeps the location in memory.
type MemoryRouter struct {
	mu       sync.RWMutex
	location string
}

// NewMemoryRouter creates a router positioned at location.
func NewMemoryRouter(location string) *MemoryRouter {
	if location == "" {
		location = ListLocation
	}
	return &MemoryRouter{location: location}
}

// Location returns the current address.
func (r *MemoryRouter) Location() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.location
}

// Replace sets the current address without recording history.
func (r *MemoryRouter) Replace(location string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = location
}

// DetailLocation returns the routed address of a task's detail view.
func DetailLocation(id string) string {
	return ListLocation + "/" + id
}

// IsDetailLocation reports whether location addresses a task detail view,
// returning the task identifier.
func IsDetailLocation(location string) (string, bool) {
	rest, ok := strings.CutPrefix(location, ListLocation+"/")
	if !ok || rest == "" {
		return "", false
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}
