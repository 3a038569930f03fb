package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/monitor"
	"github.com/testops/taskwatch/internal/task"
)

type osCall struct{ title, message string }

func newTestNotifier() (*Notifier, *bytes.Buffer, *[]osCall) {
	var buf bytes.Buffer
	calls := &[]osCall{}
	n := NewNotifier(&buf)
	n.notifyOS = func(title, message string) error {
		*calls = append(*calls, osCall{title, message})
		return nil
	}
	return n, &buf, calls
}

func TestNotifier_NotifyAttention(t *testing.T) {
	t.Parallel()

	n, buf, calls := newTestNotifier()

	require.NoError(t, n.NotifyAttention("title", "message", true))
	assert.Equal(t, Bell, buf.String())
	assert.Empty(t, *calls)

	require.NoError(t, n.NotifyAttention("title", "message", false))
	assert.Equal(t, Bell, buf.String(), "background does not ring")
	assert.Equal(t, []osCall{{"title", "message"}}, *calls)
}

func TestNotifier_NotifyForReason(t *testing.T) {
	t.Parallel()

	n, _, calls := newTestNotifier()
	require.NoError(t, n.NotifyForReason(NotifyReasonFailed, "T7", false))
	assert.Equal(t, []osCall{{"taskwatch: Failed", "Task T7 failed"}}, *calls)
}

func TestNotificationReason_Strings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason  NotificationReason
		title   string
		message string
	}{
		{NotifyReasonCompleted, "Completed", "Task T1 completed"},
		{NotifyReasonFailed, "Failed", "Task T1 failed"},
		{NotifyReasonStreamLost, "Stream Lost", "Lost the event stream for task T1"},
		{NotifyReasonNone, "taskwatch", "Task T1 needs attention"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.title, tt.reason.String())
		assert.Equal(t, tt.message, tt.reason.DefaultMessage("T1"))
	}
}

func TestTransitionReason(t *testing.T) {
	t.Parallel()

	sel := func(id string, s task.State) monitor.Snapshot {
		return monitor.Snapshot{SelectedID: id, Selected: &task.Task{RequestID: id, Status: s}}
	}
	withNotice := func(snap monitor.Snapshot, n *monitor.Notice) monitor.Snapshot {
		snap.LastError = n
		return snap
	}
	lost := &monitor.Notice{Kind: monitor.NoticeStream, Message: "stream connection closed: EOF"}
	transport := &monitor.Notice{Kind: monitor.NoticeTransport, Message: "unreachable"}

	tests := []struct {
		name       string
		prev, next monitor.Snapshot
		want       NotificationReason
	}{
		{"completes", sel("T1", task.StateValidation), sel("T1", task.StateCompleted), NotifyReasonCompleted},
		{"fails", sel("T1", task.StateGeneration), sel("T1", task.StateFailed), NotifyReasonFailed},
		{"already completed", sel("T1", task.StateCompleted), sel("T1", task.StateCompleted), NotifyReasonNone},
		{"still running", sel("T1", task.StateGeneration), sel("T1", task.StateValidation), NotifyReasonNone},
		{"selection switched to a completed task", sel("T1", task.StateGeneration), sel("T2", task.StateCompleted), NotifyReasonNone},
		{"nothing selected", monitor.Snapshot{}, monitor.Snapshot{}, NotifyReasonNone},
		{"stream lost", sel("T1", task.StateGeneration), withNotice(sel("T1", task.StateGeneration), lost), NotifyReasonStreamLost},
		{"stream lost already shown", withNotice(sel("T1", task.StateGeneration), lost), withNotice(sel("T1", task.StateGeneration), lost), NotifyReasonNone},
		{"other notice", sel("T1", task.StateGeneration), withNotice(sel("T1", task.StateGeneration), transport), NotifyReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TransitionReason(tt.prev, tt.next))
		})
	}
}
