package tui

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/testops/taskwatch/internal/monitor"
	"github.com/testops/taskwatch/internal/task"
)

// Notifier alerts the user when the selected task needs attention. When the
// UI is in the foreground it rings the terminal bell; otherwise it uses an
// OS-native notification.
type Notifier struct {
	out      io.Writer
	notifyOS func(title, message string) error
}

// NewNotifier creates a Notifier that writes bell to the given output.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out, notifyOS: notifyOS}
}

// Bell writes the terminal bell character to output.
func (n *Notifier) Bell() {
	fmt.Fprint(n.out, Bell)
}

// NotifyAttention rings the bell when isForeground, else sends an OS
// notification.
func (n *Notifier) NotifyAttention(title, message string, isForeground bool) error {
	if isForeground {
		n.Bell()
		return nil
	}
	return n.notifyOS(title, message)
}

// notifyOS uses osascript on macOS and does nothing elsewhere.
func notifyOS(title, message string) error {
	if runtime.GOOS != "darwin" {
		return nil
	}
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// NotificationReason represents why a notification is being sent.
type NotificationReason int

const (
	NotifyReasonNone NotificationReason = iota
	NotifyReasonCompleted
	NotifyReasonFailed
	NotifyReasonStreamLost
)

// String returns a human-readable title for the notification reason.
func (r NotificationReason) String() string {
	switch r {
	case NotifyReasonCompleted:
		return "Completed"
	case NotifyReasonFailed:
		return "Failed"
	case NotifyReasonStreamLost:
		return "Stream Lost"
	default:
		return "taskwatch"
	}
}

// DefaultMessage returns a default notification message for the reason.
func (r NotificationReason) DefaultMessage(taskID string) string {
	switch r {
	case NotifyReasonCompleted:
		return fmt.Sprintf("Task %s completed", taskID)
	case NotifyReasonFailed:
		return fmt.Sprintf("Task %s failed", taskID)
	case NotifyReasonStreamLost:
		return fmt.Sprintf("Lost the event stream for task %s", taskID)
	default:
		return fmt.Sprintf("Task %s needs attention", taskID)
	}
}

// NotifyForReason sends a notification for the given reason.
func (n *Notifier) NotifyForReason(reason NotificationReason, taskID string, isForeground bool) error {
	return n.NotifyAttention("taskwatch: "+reason.String(), reason.DefaultMessage(taskID), isForeground)
}

// TransitionReason compares two consecutive snapshots and reports whether the
// selected task just finished or lost its stream. Switching the selection
// never notifies.
func TransitionReason(prev, next monitor.Snapshot) NotificationReason {
	if next.SelectedID == "" || prev.SelectedID != next.SelectedID {
		return NotifyReasonNone
	}

	if prev.Selected != nil && next.Selected != nil && !prev.Selected.Status.IsTerminal() {
		switch next.Selected.Status {
		case task.StateCompleted:
			return NotifyReasonCompleted
		case task.StateFailed:
			return NotifyReasonFailed
		}
	}

	if n := next.LastError; n != nil && n.Kind == monitor.NoticeStream {
		if prev.LastError == nil || *prev.LastError != *n {
			return NotifyReasonStreamLost
		}
	}
	return NotifyReasonNone
}
