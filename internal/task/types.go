// Package task defines the records exchanged with the test-generation gateway:
// task lifecycle states, task summaries and details, generated test cases and
// per-agent metrics.
package task

import (
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a generation job.
type State string

const (
	StatePending        State = "pending"
	StateStarted        State = "started"
	StateProcessing     State = "processing"
	StateReconnaissance State = "reconnaissance"
	StateGeneration     State = "generation"
	StateValidation     State = "validation"
	StateOptimization   State = "optimization"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// AllStates lists every state in pipeline order.
var AllStates = []State{
	StatePending,
	StateStarted,
	StateProcessing,
	StateReconnaissance,
	StateGeneration,
	StateValidation,
	StateOptimization,
	StateCompleted,
	StateFailed,
}

// FilterStates are the values offered by the list filter. The empty state
// means "all"; StateProcessing matches every active state.
var FilterStates = []State{"", StatePending, StateProcessing, StateCompleted, StateFailed}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the job has stopped (completed or failed).
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsActive reports whether a worker is currently running the job.
func (s State) IsActive() bool {
	switch s {
	case StateStarted, StateProcessing, StateReconnaissance, StateGeneration, StateValidation, StateOptimization:
		return true
	}
	return false
}

// Resumable reports whether a resume request makes sense for the state.
func (s State) Resumable() bool {
	return s == StateFailed
}

// Matches reports whether s passes the list filter f.
// An empty filter matches everything and "processing" matches any active state.
func (s State) Matches(f State) bool {
	switch f {
	case "":
		return true
	case StateProcessing:
		return s.IsActive()
	default:
		return s == f
	}
}

// String returns the state name, or "all" for the empty filter value.
func (s State) String() string {
	if s == "" {
		return "all"
	}
	return string(s)
}

// ParseFilter parses a user-supplied filter value. "", "all" and "*" mean no filter.
func ParseFilter(v string) (State, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "", "all", "*":
		return "", nil
	}
	s := State(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown task status %q", v)
	}
	return s, nil
}

// ResultSummary holds the counters reported when a job finishes.
type ResultSummary struct {
	TestsGenerated int    `json:"tests_generated,omitempty" yaml:"tests_generated,omitempty"`
	TestsValidated int    `json:"tests_validated,omitempty" yaml:"tests_validated,omitempty"`
	TestsOptimized int    `json:"tests_optimized,omitempty" yaml:"tests_optimized,omitempty"`
	TestType       string `json:"test_type,omitempty" yaml:"test_type,omitempty"`
}

// TestCase is one generated test.
type TestCase struct {
	ID               string    `json:"test_id" yaml:"test_id"`
	Name             string    `json:"test_name" yaml:"test_name"`
	Type             string    `json:"test_type" yaml:"test_type"`
	Code             string    `json:"test_code,omitempty" yaml:"test_code,omitempty"`
	Priority         int       `json:"priority,omitempty" yaml:"priority,omitempty"`
	AllureTags       []string  `json:"allure_tags,omitempty" yaml:"allure_tags,omitempty"`
	ValidationStatus string    `json:"validation_status,omitempty" yaml:"validation_status,omitempty"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
}

// AgentMetric records how long one pipeline agent ran for a job.
type AgentMetric struct {
	AgentName      string `json:"agent_name" yaml:"agent_name"`
	DurationMS     int64  `json:"duration_ms" yaml:"duration_ms"`
	Status         string `json:"status" yaml:"status"`
	LLMTokensTotal int    `json:"llm_tokens_total,omitempty" yaml:"llm_tokens_total,omitempty"`
}

// Task is the record returned by both the list and the detail endpoints.
//
// List responses leave Tests and Metrics nil (a task summary); detail
// responses fetched with tests and metrics fill them in (a task detail).
type Task struct {
	RequestID           string         `json:"request_id" yaml:"request_id"`
	Status              State          `json:"status" yaml:"status"`
	CurrentStep         string         `json:"current_step,omitempty" yaml:"current_step,omitempty"`
	Progress            *int           `json:"progress,omitempty" yaml:"progress,omitempty"`
	StartedAt           *time.Time     `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	EstimatedCompletion *time.Time     `json:"estimated_completion,omitempty" yaml:"estimated_completion,omitempty"`
	ResultSummary       *ResultSummary `json:"result_summary,omitempty" yaml:"result_summary,omitempty"`
	ErrorMessage        string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	RetryCount          int            `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`
	Tests               []TestCase     `json:"tests,omitempty" yaml:"tests,omitempty"`
	Metrics             []AgentMetric  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// HasDetail reports whether the task carries any tests or metrics.
func (t *Task) HasDetail() bool {
	return len(t.Tests) > 0 || len(t.Metrics) > 0
}

// ProgressPercent returns the progress value and whether one was reported.
func (t *Task) ProgressPercent() (int, bool) {
	if t.Progress == nil {
		return 0, false
	}
	return *t.Progress, true
}

// TestsGenerated returns the generated-test count from the result summary.
func (t *Task) TestsGenerated() int {
	if t.ResultSummary == nil {
		return 0
	}
	return t.ResultSummary.TestsGenerated
}

// ShortID returns the first eight characters of the identifier.
func (t *Task) ShortID() string {
	if len(t.RequestID) <= 8 {
		return t.RequestID
	}
	return t.RequestID[:8]
}

// Clone returns a deep copy so the result can be handed to another goroutine.
func (t Task) Clone() Task {
	out := t
	if t.Progress != nil {
		p := *t.Progress
		out.Progress = &p
	}
	out.StartedAt = cloneTime(t.StartedAt)
	out.CompletedAt = cloneTime(t.CompletedAt)
	out.EstimatedCompletion = cloneTime(t.EstimatedCompletion)
	if t.ResultSummary != nil {
		rs := *t.ResultSummary
		out.ResultSummary = &rs
	}
	if t.Tests != nil {
		out.Tests = make([]TestCase, len(t.Tests))
		for i, tc := range t.Tests {
			if tc.AllureTags != nil {
				tc.AllureTags = append([]string(nil), tc.AllureTags...)
			}
			out.Tests[i] = tc
		}
	}
	if t.Metrics != nil {
		out.Metrics = append([]AgentMetric(nil), t.Metrics...)
	}
	return out
}

// CloneAll deep-copies a slice of tasks.
func CloneAll(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

// IntPtr returns a pointer to v. Handy for building Progress values.
func IntPtr(v int) *int {
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
