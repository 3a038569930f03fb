// Package tui is the interactive terminal view of the task monitor: a task
// list, the detail pane of the selected task and a dismissible notice bar.
package tui

import (
	"io"
	"sync"
	"time"

	"github.com/testops/taskwatch/internal/monitor"
	"github.com/testops/taskwatch/internal/task"
)

// Action represents a user action from the TUI.
type Action int

const (
	ActionNone     Action = iota
	ActionSelect          // open the task under the cursor
	ActionDeselect        // close the detail pane
	ActionResume          // resume the selected (or highlighted) task
	ActionFilter          // switch to the next status filter
	ActionDismiss         // dismiss the current notice
	ActionRefresh         // poll and refetch now
	ActionQuit            // leave the UI
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSelect:
		return "select"
	case ActionDeselect:
		return "deselect"
	case ActionResume:
		return "resume"
	case ActionFilter:
		return "filter"
	case ActionDismiss:
		return "dismiss"
	case ActionRefresh:
		return "refresh"
	case ActionQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// ActionEvent is sent when the user triggers an action.
type ActionEvent struct {
	Action Action
	TaskID string     // ActionSelect, ActionResume
	Filter task.State // ActionFilter
}

// TUI holds the screen state. Moving the cursor is purely local; only an
// explicit action changes the monitor's selection.
type TUI struct {
	terminal  *Terminal
	keyReader *KeyReader
	out       io.Writer
	now       func() time.Time

	mu       sync.Mutex
	snap     monitor.Snapshot
	cursor   int
	cursorID string
	showHelp bool
	width    int
	height   int
	running  bool
	list     *ListView
	detail   *DetailView
}

// NewTUI creates a new TUI instance.
func NewTUI(out io.Writer) *TUI {
	return &TUI{
		terminal: NewTerminal(out),
		out:      out,
		now:      time.Now,
		width:    100,
		height:   30,
		list:     &ListView{},
		detail:   &DetailView{},
	}
}

// NewNopTUI creates a TUI that discards all output.
func NewNopTUI() *TUI {
	return NewTUI(io.Discard)
}

// SetSnapshot replaces the displayed state. The cursor stays on the same
// task when it is still listed, otherwise on the same row.
func (t *TUI) SetSnapshot(snap monitor.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = snap
	t.placeCursor()
}

// Snapshot returns the displayed state.
func (t *TUI) Snapshot() monitor.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Cursor returns the highlighted row and its task ID.
func (t *TUI) Cursor() (int, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor, t.cursorID
}

// placeCursor must be called with mu held.
func (t *TUI) placeCursor() {
	if i := t.snap.IndexOf(t.cursorID); i >= 0 {
		t.cursor = i
		return
	}
	t.moveCursorTo(t.cursor)
}

// moveCursorTo must be called with mu held.
func (t *TUI) moveCursorTo(i int) {
	n := len(t.snap.Tasks)
	if n == 0 {
		t.cursor, t.cursorID = 0, ""
		return
	}
	t.cursor = min(max(i, 0), n-1)
	t.cursorID = t.snap.Tasks[t.cursor].RequestID
}

// handleKeyEvent processes a key event and returns any triggered action.
func (t *TUI) handleKeyEvent(ev KeyEvent) ActionEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ParseShortcut(ev) {
	case ShortcutUp:
		t.moveCursorTo(t.cursor - 1)
	case ShortcutDown:
		t.moveCursorTo(t.cursor + 1)
	case ShortcutTop:
		t.moveCursorTo(0)
	case ShortcutBottom:
		t.moveCursorTo(len(t.snap.Tasks) - 1)
	case ShortcutHelp:
		t.showHelp = !t.showHelp

	case ShortcutSelect:
		if t.cursorID != "" {
			return ActionEvent{Action: ActionSelect, TaskID: t.cursorID}
		}
	case ShortcutDeselect:
		if t.snap.SelectedID != "" {
			return ActionEvent{Action: ActionDeselect}
		}
	case ShortcutResume:
		id := t.snap.SelectedID
		if id == "" {
			id = t.cursorID
		}
		if id != "" {
			return ActionEvent{Action: ActionResume, TaskID: id}
		}
	case ShortcutFilter:
		return ActionEvent{Action: ActionFilter, Filter: nextFilter(t.snap.Filter)}
	case ShortcutDismiss:
		if t.snap.LastError != nil {
			return ActionEvent{Action: ActionDismiss}
		}
	case ShortcutRefresh:
		return ActionEvent{Action: ActionRefresh}
	case ShortcutQuit:
		return ActionEvent{Action: ActionQuit}
	}
	return ActionEvent{Action: ActionNone}
}

// nextFilter cycles through task.FilterStates.
func nextFilter(current task.State) task.State {
	for i, f := range task.FilterStates {
		if f == current {
			return task.FilterStates[(i+1)%len(task.FilterStates)]
		}
	}
	return task.FilterStates[0]
}

// Render lays out the whole screen for the current size.
func (t *TUI) Render() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.render()
}

func (t *TUI) render() []string {
	now := t.now()
	notice := NoticeBar(t.snap.LastError, t.width)

	listHeight := max(4, min(len(t.snap.Tasks)+1, t.height/3))
	lines := t.list.Render(t.snap, t.cursor, t.width, listHeight, now)
	lines = append(lines, "")
	lines = append(lines, t.detail.Render(t.snap, t.width, now)...)

	// Notice and help stay on screen; the detail pane is cut to fit.
	footer := append(notice, HelpLine(t.showHelp, t.width))
	if room := t.height - len(footer); len(lines) > room {
		lines = lines[:max(0, room)]
	}
	for len(lines) < t.height-len(footer) {
		lines = append(lines, "")
	}
	return append(lines, footer...)
}

// Update redraws the screen.
func (t *TUI) Update() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	if width, height, err := t.terminal.Size(); err == nil {
		t.width, t.height = width, height
	}
	t.terminal.WriteLines(t.render())
}

// IsRunning returns whether the TUI is currently running.
func (t *TUI) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *TUI) setRunning(running bool) {
	t.mu.Lock()
	t.running = running
	t.mu.Unlock()
}

// Bell sounds the terminal bell.
func (t *TUI) Bell() {
	t.terminal.RingBell()
}
