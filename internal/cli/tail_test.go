package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/stream"
	"github.com/testops/taskwatch/internal/testutil"
)

func TestTailCommand_RequiresTaskArg(t *testing.T) {
	assert.Equal(t, "tail <task-id>", tailCmd.Use)

	assert.Error(t, tailCmd.Args(tailCmd, []string{}))
	assert.Error(t, tailCmd.Args(tailCmd, []string{"a", "b"}))
	assert.NoError(t, tailCmd.Args(tailCmd, []string{"T1"}))
}

func TestTailCommand_Flags(t *testing.T) {
	f := tailCmd.Flags().Lookup("json")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)

	f = tailCmd.Flags().Lookup("quiet")
	require.NotNil(t, f)
	assert.Equal(t, "q", f.Shorthand)
}

func TestTail_FollowsUntilCompleted(t *testing.T) {
	gw := testutil.NewGateway(t)
	gw.SetStream("T1",
		testutil.Heartbeat,
		testutil.ProgressFrame("T1", "reconnaissance", 10),
		testutil.Frame("", `{"request_id":"T1","message":"crawling"}`),
		testutil.ProgressFrame("T1", "generation", 55),
		testutil.CompletedFrame("T1"),
	)

	out, err := execute(t, gw, "tail", "T1")
	require.NoError(t, err)

	lines := nonEmptyLines(out)
	require.Len(t, lines, 5)
	assert.Equal(t, "--- connected to T1 ---", lines[0])
	assert.Contains(t, lines[1], "progress")
	assert.Contains(t, lines[1], "processing  reconnaissance  10%")
	assert.Contains(t, lines[2], "crawling")
	assert.Contains(t, lines[3], "generation  55%")
	assert.Contains(t, lines[4], "completed")
	assert.Contains(t, lines[4], "3 tests generated")
}

func TestTail_FailedTaskIsAnError(t *testing.T) {
	gw := testutil.NewGateway(t)
	gw.SetStream("T1",
		testutil.ProgressFrame("T1", "validation", 80),
		testutil.ErrorFrame("T1", "validator crashed"),
	)

	out, err := execute(t, gw, "tail", "T1", "--quiet")
	require.Error(t, err)
	assert.Equal(t, "task T1 failed: validator crashed", err.Error())
	assert.NotContains(t, out, "connected")
	assert.Contains(t, out, "validator crashed")
}

func TestTail_UnknownTask(t *testing.T) {
	gw := testutil.NewGateway(t)

	_, err := execute(t, gw, "tail", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task missing failed: stream connection closed")
}

func TestTail_JSON(t *testing.T) {
	gw := testutil.NewGateway(t)
	gw.SetStream("T1", testutil.ProgressFrame("T1", "a", 5), testutil.CompletedFrame("T1"))

	out, err := execute(t, gw, "tail", "T1", "--json")
	require.NoError(t, err)

	lines := nonEmptyLines(out)
	require.Len(t, lines, 2)
	var kinds []stream.Kind
	for _, l := range lines {
		var ev stream.Event
		require.NoError(t, json.Unmarshal([]byte(l), &ev))
		assert.Equal(t, "T1", ev.TaskID)
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []stream.Kind{stream.KindProgress, stream.KindCompleted}, kinds)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ev   stream.Event
		want string
	}{
		{"failed", stream.Event{Kind: stream.KindFailed, Message: "boom"}, "boom"},
		{"completed without summary", stream.Event{Kind: stream.KindCompleted, Payload: json.RawMessage(`{}`)}, "done"},
		{"completed with summary", stream.Event{Kind: stream.KindCompleted, Payload: json.RawMessage(`{"result_summary":{"tests_generated":7}}`)}, "7 tests generated"},
		{"nested status", stream.Event{Kind: stream.KindProgress, Payload: json.RawMessage(`{"status":{"request_id":"T1","status":"validation"},"progress":90}`)}, "validation  90%"},
		{"opaque payload", stream.Event{Kind: stream.KindProgress, Payload: json.RawMessage(`{"foo":1}`)}, `{"foo":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.ev.ReceivedAt = at
			assert.Equal(t, tt.want, summarize(&tt.ev))
		})
	}
}

func TestEventPrinter(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	p := &eventPrinter{w: &sb}
	p.connection("T1", true)
	p.connection("T1", false)
	require.NoError(t, p.event(&stream.Event{
		Kind:       stream.KindFailed,
		Message:    "gave up",
		ReceivedAt: time.Date(2026, 5, 1, 9, 30, 5, 0, time.UTC),
	}))

	assert.Equal(t, "--- connected to T1 ---\n--- disconnected, retrying ---\n09:30:05  failed    gave up\n", sb.String())
}
