package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/task"
)

func TestSampleTasks(t *testing.T) {
	t.Parallel()

	tasks := SampleTasks()
	require.Len(t, tasks, 4)
	AssertTaskIDs(t, tasks, "req-pending", "req-generating", "req-completed", "req-failed")

	// Each call returns a fresh slice.
	*tasks[1].Progress = 99
	tasks[0].Status = task.StateFailed
	again := SampleTasks()
	assert.Equal(t, 45, *again[1].Progress)
	AssertTaskStatus(t, &again[0], task.StatePending)
}

func TestSampleDetail(t *testing.T) {
	t.Parallel()

	d := SampleDetail("req-x")
	assert.Equal(t, "req-x", d.RequestID)
	AssertHasDetail(t, &d, 2, 2)
	assert.True(t, d.Status.IsActive())
}

func TestFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{"unnamed", Frame("", `{"a":1}`), "data: {\"a\":1}\n\n"},
		{"named", Frame("progress", `{}`), "event: progress\ndata: {}\n\n"},
		{"progress", ProgressFrame("T1", "step", 40), "event: progress\ndata: {\"progress\":40,\"request_id\":\"T1\",\"status\":\"processing\",\"step\":\"step\"}\n\n"},
		{"completed", CompletedFrame("T1"), "event: completed\ndata: {\"request_id\":\"T1\",\"result_summary\":{\"tests_generated\":3},\"status\":\"completed\"}\n\n"},
		{"error", ErrorFrame("T1", "boom"), "event: error\ndata: {\"error\":\"boom\",\"request_id\":\"T1\"}\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.frame)
		})
	}
}

func TestMustUnmarshalJSON(t *testing.T) {
	t.Parallel()

	var out map[string]int
	MustUnmarshalJSON(t, []byte(`{"a": 1}`), &out)
	assert.Equal(t, 1, out["a"])
}

func TestWriteTestFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	WriteTestFile(t, dir, "nested/dir/file.txt", []byte("content"))

	data, err := os.ReadFile(filepath.Join(dir, "nested", "dir", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()

	path := WriteConfig(t, "api:\n  url: http://gw\n")
	assert.Equal(t, "taskwatch.yaml", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "http://gw")
}
