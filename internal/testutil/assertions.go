package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/task"
)

// AssertTaskIDs asserts that tasks are exactly ids, in order.
func AssertTaskIDs(t *testing.T, tasks []task.Task, ids ...string) {
	t.Helper()

	got := make([]string, len(tasks))
	for i, tk := range tasks {
		got[i] = tk.RequestID
	}
	if len(ids) == 0 {
		ids = []string{}
	}
	assert.Equal(t, ids, got, "task order mismatch")
}

// AssertTaskStatus asserts that a task has the expected lifecycle state.
func AssertTaskStatus(t *testing.T, tk *task.Task, expected task.State) {
	t.Helper()
	require.NotNil(t, tk, "task is nil")
	assert.Equal(t, expected, tk.Status, "task %s status mismatch", tk.RequestID)
}

// AssertHasDetail asserts that a task carries the given number of tests and
// metrics.
func AssertHasDetail(t *testing.T, tk *task.Task, tests, metrics int) {
	t.Helper()
	require.NotNil(t, tk, "task is nil")
	assert.Len(t, tk.Tests, tests, "task %s test count mismatch", tk.RequestID)
	assert.Len(t, tk.Metrics, metrics, "task %s metric count mismatch", tk.RequestID)
}
