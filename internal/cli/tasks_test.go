package cli

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/task"
	"github.com/testops/taskwatch/internal/testutil"
)

func TestTasksCommands_Args(t *testing.T) {
	assert.Equal(t, "list", tasksListCmd.Use)
	assert.Error(t, tasksListCmd.Args(tasksListCmd, []string{"extra"}))

	for _, cmd := range []struct {
		use string
		c   func([]string) error
	}{
		{"show <task-id>", func(a []string) error { return tasksShowCmd.Args(tasksShowCmd, a) }},
		{"resume <task-id>", func(a []string) error { return tasksResumeCmd.Args(tasksResumeCmd, a) }},
	} {
		t.Run(cmd.use, func(t *testing.T) {
			assert.Error(t, cmd.c(nil))
			assert.Error(t, cmd.c([]string{"a", "b"}))
			assert.NoError(t, cmd.c([]string{"a"}))
		})
	}
}

func TestTasksCommands_Flags(t *testing.T) {
	f := tasksCmd.PersistentFlags().Lookup("output")
	require.NotNil(t, f)
	assert.Equal(t, "o", f.Shorthand)
	assert.Equal(t, "table", f.DefValue)

	f = tasksListCmd.Flags().Lookup("limit")
	require.NotNil(t, f)
	assert.Equal(t, "n", f.Shorthand)
	assert.Equal(t, "50", f.DefValue)

	f = tasksResumeCmd.Flags().Lookup("follow")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}

func TestTasksList_Table(t *testing.T) {
	fixedNow(t)
	gw := testutil.NewGateway(t)
	gw.SetTasks(testutil.SampleTasks())

	out, err := execute(t, gw, "tasks", "list")
	require.NoError(t, err)

	lines := nonEmptyLines(out)
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "req-generating")
	assert.Contains(t, lines[2], "generation")
	assert.Contains(t, lines[2], "45%")
	assert.Contains(t, lines[2], "2m0s ago")
	assert.Contains(t, lines[1], "req-pending")

	reqs := gw.RequestsTo(http.MethodGet, "/api/v1/tasks")
	require.Len(t, reqs, 1)
	assert.Equal(t, "50", reqs[0].Query.Get("limit"))
	assert.Empty(t, reqs[0].Query.Get("status"))
}

func TestTasksList_Empty(t *testing.T) {
	gw := testutil.NewGateway(t)

	out, err := execute(t, gw, "tasks", "list")
	require.NoError(t, err)
	assert.Equal(t, "No tasks found.\n", out)
}

func TestTasksList_Filters(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		wantQuery string
		want      []string
	}{
		{"concrete state is sent to the gateway", "failed", "failed", []string{"req-failed"}},
		{"processing spans active states", "processing", "", []string{"req-generating"}},
		{"all", "all", "", []string{"req-pending", "req-generating", "req-completed", "req-failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := testutil.NewGateway(t)
			gw.SetTasks(testutil.SampleTasks())

			out, err := execute(t, gw, "tasks", "list", "--status", tt.status, "-o", "json")
			require.NoError(t, err)

			var tasks []task.Task
			testutil.MustUnmarshalJSON(t, []byte(out), &tasks)
			testutil.AssertTaskIDs(t, tasks, tt.want...)

			reqs := gw.RequestsTo(http.MethodGet, "/api/v1/tasks")
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.wantQuery, reqs[0].Query.Get("status"))
		})
	}
}

func TestTasksList_InvalidInput(t *testing.T) {
	gw := testutil.NewGateway(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"status", []string{"--status", "sleeping"}, "unknown task status"},
		{"format", []string{"-o", "xml"}, "unknown output format"},
		{"limit", []string{"--limit", "0"}, "--limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, gw, append([]string{"tasks", "list"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Empty(t, gw.Requests())
}

func TestTasksList_GatewayDown(t *testing.T) {
	cfgFile := testutil.WriteConfig(t, "api:\n  url: http://127.0.0.1:1/api/v1\n")

	_, err := execute(t, nil, "--config", cfgFile, "tasks", "list")
	require.Error(t, err)
	assert.True(t, api.IsTransport(err))
}

func TestTasksShow(t *testing.T) {
	fixedNow(t)
	gw := testutil.NewGateway(t)
	gw.SetDetail(testutil.SampleDetail("req-x"))

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, gw, "tasks", "show", "req-x")
		require.NoError(t, err)
		assert.Contains(t, out, "validation")
		assert.Contains(t, out, "70%")
		assert.Contains(t, out, "Tests (2)")
		assert.Contains(t, out, "login rejects bad password")
		assert.Contains(t, out, "generator")
		assert.Contains(t, out, "48s")
	})

	t.Run("yaml without metrics", func(t *testing.T) {
		out, err := execute(t, gw, "tasks", "show", "req-x", "--metrics=false", "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "request_id: req-x")
		assert.Contains(t, out, "test_name: login succeeds")
		assert.NotContains(t, out, "agent_name")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := execute(t, gw, "tasks", "show", "missing")
		require.Error(t, err)
		assert.True(t, api.IsNotFound(err))
		assert.Contains(t, err.Error(), "Task with ID missing not found")
	})
}

func TestTasksResume(t *testing.T) {
	gw := testutil.NewGateway(t)
	gw.SetTasks(testutil.SampleTasks())

	t.Run("failed task", func(t *testing.T) {
		out, err := execute(t, gw, "tasks", "resume", "req-failed")
		require.NoError(t, err)
		assert.Contains(t, out, "Resumed req-failed")
		assert.Contains(t, out, "Task resumed from last checkpoint")
	})

	t.Run("completed task is rejected", func(t *testing.T) {
		_, err := execute(t, gw, "tasks", "resume", "req-completed")
		require.Error(t, err)
		assert.True(t, api.IsDomain(err))
		assert.Contains(t, err.Error(), "Task is already completed")
	})

	t.Run("follow", func(t *testing.T) {
		gw.SetTasks(testutil.SampleTasks())
		gw.SetStream("req-failed",
			testutil.ProgressFrame("req-failed", "validation", 60),
			testutil.CompletedFrame("req-failed"))

		out, err := execute(t, gw, "tasks", "resume", "req-failed", "--follow", "-o", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"request_id": "req-failed"`)
		assert.Contains(t, out, "3 tests generated")
	})
}
