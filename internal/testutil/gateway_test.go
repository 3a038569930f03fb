package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/task"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestGateway_List(t *testing.T) {
	t.Parallel()

	gw := NewGateway(t)
	gw.SetTasks(SampleTasks())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"req-pending", "req-generating", "req-completed", "req-failed"}},
		{"status", "?status=failed", []string{"req-failed"}},
		{"limit", "?limit=2", []string{"req-pending", "req-generating"}},
		{"offset", "?limit=2&offset=3", []string{"req-failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, gw.URL()+"/tasks"+tt.query)
			require.Equal(t, http.StatusOK, code)
			var tasks []task.Task
			MustUnmarshalJSON(t, []byte(body), &tasks)
			AssertTaskIDs(t, tasks, tt.want...)
		})
	}
}

func TestGateway_GetDetail(t *testing.T) {
	t.Parallel()

	gw := NewGateway(t)
	gw.SetDetail(SampleDetail("req-x"))

	code, body := get(t, gw.URL()+"/tasks/req-x?include_tests=true&include_metrics=false")
	require.Equal(t, http.StatusOK, code)
	var d task.Task
	MustUnmarshalJSON(t, []byte(body), &d)
	AssertHasDetail(t, &d, 2, 0)

	code, body = get(t, gw.URL()+"/tasks/missing")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, "Task with ID missing not found")
}

func TestGateway_Resume(t *testing.T) {
	t.Parallel()

	gw := NewGateway(t)
	gw.SetTasks(SampleTasks())

	post := func(id string) (int, map[string]string) {
		resp, err := http.Post(gw.URL()+"/tasks/"+id+"/resume", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	code, out := post("req-completed")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Task is already completed", out["detail"])

	code, out = post("req-generating")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["detail"], "not in failed state")

	code, _ = post("nope")
	assert.Equal(t, http.StatusNotFound, code)

	code, out = post("req-failed")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "req-failed", out["request_id"])

	_, body := get(t, gw.URL()+"/tasks/req-failed")
	var d task.Task
	MustUnmarshalJSON(t, []byte(body), &d)
	AssertTaskStatus(t, &d, task.StateStarted)

	assert.Len(t, gw.RequestsTo(http.MethodPost, "/api/v1/tasks/req-failed/resume"), 1)
}

func TestGateway_Generate(t *testing.T) {
	t.Parallel()

	gw := NewGateway(t)
	gw.SetNextID("gen-1")

	resp, err := http.Post(gw.URL()+"/generate/test-cases", "application/json", strings.NewReader(`{"url":"https://example.com"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "gen-1", out["request_id"])
	assert.Equal(t, "/api/v1/stream/gen-1", out["stream_url"])

	reqs := gw.RequestsTo(http.MethodPost, "/api/v1/generate/test-cases")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"url":"https://example.com"}`, string(reqs[0].Body))

	_, body := get(t, gw.URL()+"/tasks")
	var tasks []task.Task
	MustUnmarshalJSON(t, []byte(body), &tasks)
	AssertTaskIDs(t, tasks, "gen-1")
}

func TestGateway_Stream(t *testing.T) {
	t.Parallel()

	gw := NewGateway(t)
	gw.SetStream("T1", Heartbeat, ProgressFrame("T1", "a", 10), CompletedFrame("T1"))

	code, body := get(t, gw.URL()+"/stream/T1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, Heartbeat+ProgressFrame("T1", "a", 10)+CompletedFrame("T1"), body)

	code, _ = get(t, gw.URL()+"/stream/unknown")
	assert.Equal(t, http.StatusNotFound, code)
}
