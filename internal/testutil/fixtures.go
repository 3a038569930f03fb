package testutil

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/testops/taskwatch/internal/task"
)

// SampleTime is the instant the fixtures are relative to.
var SampleTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) *time.Time {
	t := SampleTime.Add(offset)
	return &t
}

// SampleTasks returns one task summary per lifecycle stage, newest first.
// Returns a new slice each time to prevent test interference.
func SampleTasks() []task.Task {
	return []task.Task{
		{
			RequestID: "req-pending",
			Status:    task.StatePending,
		},
		{
			RequestID:   "req-generating",
			Status:      task.StateGeneration,
			CurrentStep: "generating test cases",
			Progress:    task.IntPtr(45),
			StartedAt:   at(-2 * time.Minute),
		},
		{
			RequestID:   "req-completed",
			Status:      task.StateCompleted,
			CurrentStep: "done",
			Progress:    task.IntPtr(100),
			StartedAt:   at(-10 * time.Minute),
			CompletedAt: at(-4 * time.Minute),
			ResultSummary: &task.ResultSummary{
				TestsGenerated: 12,
				TestsValidated: 10,
				TestsOptimized: 8,
				TestType:       "automated",
			},
		},
		{
			RequestID:    "req-failed",
			Status:       task.StateFailed,
			CurrentStep:  "validation",
			Progress:     task.IntPtr(60),
			StartedAt:    at(-30 * time.Minute),
			ErrorMessage: "validator timed out",
			RetryCount:   1,
		},
	}
}

// SampleDetail returns a task detail for id carrying tests and metrics.
func SampleDetail(id string) task.Task {
	return task.Task{
		RequestID:   id,
		Status:      task.StateValidation,
		CurrentStep: "validating generated tests",
		Progress:    task.IntPtr(70),
		StartedAt:   at(-5 * time.Minute),
		Tests: []task.TestCase{
			{ID: "tc-1", Name: "login succeeds", Type: "automated", Priority: 1, ValidationStatus: "passed", CreatedAt: SampleTime},
			{ID: "tc-2", Name: "login rejects bad password", Type: "automated", Priority: 2, ValidationStatus: "pending", CreatedAt: SampleTime},
		},
		Metrics: []task.AgentMetric{
			{AgentName: "reconnaissance", DurationMS: 12500, Status: "completed", LLMTokensTotal: 1800},
			{AgentName: "generator", DurationMS: 48000, Status: "completed", LLMTokensTotal: 9200},
		},
	}
}

// Frame renders one event stream frame.
func Frame(event, data string) string {
	if event == "" {
		return fmt.Sprintf("data: %s\n\n", data)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

// ProgressFrame renders a progress frame for id.
func ProgressFrame(id, step string, pct int) string {
	data, _ := json.Marshal(map[string]any{
		"request_id": id,
		"status":     "processing",
		"step":       step,
		"progress":   pct,
	})
	return Frame("progress", string(data))
}

// CompletedFrame renders the terminal success frame for id.
func CompletedFrame(id string) string {
	data, _ := json.Marshal(map[string]any{
		"request_id":     id,
		"status":         "completed",
		"result_summary": map[string]any{"tests_generated": 3},
	})
	return Frame("completed", string(data))
}

// ErrorFrame renders the terminal failure frame for id.
func ErrorFrame(id, message string) string {
	data, _ := json.Marshal(map[string]any{
		"request_id": id,
		"error":      message,
	})
	return Frame("error", string(data))
}

// Heartbeat is the keep-alive comment the gateway sends between frames.
const Heartbeat = ": heartbeat\n\n"
