// Package selection owns which task, if any, is open for detailed viewing.
// Selection changes only through Select and Deselect, which callers invoke in
// response to user input.
package selection

import (
	"errors"
	"sync"
)

// ErrEmptyID is returned when selecting without an identifier.
var ErrEmptyID = errors.New("selection: empty task id")

// Change describes the effect of a Select or Deselect call.
type Change struct {
	Previous string
	Current  string
}

// Changed reports whether the selection moved.
func (c Change) Changed() bool {
	return c.Previous != c.Current
}

// Guard holds the current selection.
type Guard struct {
	router Router

	mu      sync.RWMutex
	current string
}

// NewGuard creates a Guard with nothing selected. router may be nil.
func NewGuard(router Router) *Guard {
	return &Guard{router: router}
}

// Current returns the selected identifier, or "".
func (g *Guard) Current() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}

// IsSelected reports whether id is the current selection.
func (g *Guard) IsSelected(id string) bool {
	return id != "" && g.Current() == id
}

// Select makes id the current selection. Selecting the current task again is
// a no-op. The router is not touched.
func (g *Guard) Select(id string) (Change, error) {
	if id == "" {
		return Change{}, ErrEmptyID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := Change{Previous: g.current, Current: id}
	g.current = id
	return c, nil
}

// Deselect clears the selection and, when the router points at a task
// detail address, moves it back to the list.
func (g *Guard) Deselect() Change {
	g.mu.Lock()
	c := Change{Previous: g.current}
	g.current = ""
	g.mu.Unlock()

	if g.router != nil {
		if _, ok := IsDetailLocation(g.router.Location()); ok {
			g.router.Replace(ListLocation)
		}
	}
	return c
}
