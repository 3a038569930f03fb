// Package simulate runs fake test-generation jobs in memory. An Engine serves
// the same task records and event frames as the gateway, so the monitor and
// the CLI can be exercised without a backend.
package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/stream"
	"github.com/testops/taskwatch/internal/task"
)

// StepPercent is how far a job advances on each Step.
const StepPercent = 5

// Stage is one agent of the generation pipeline.
type Stage struct {
	State task.State
	Step  string
}

// Pipeline is the order jobs move through. Each stage covers an equal share
// of the progress range.
var Pipeline = []Stage{
	{task.StateReconnaissance, "exploring the target page"},
	{task.StateGeneration, "generating test cases"},
	{task.StateValidation, "validating generated tests"},
	{task.StateOptimization, "optimizing the suite"},
}

// Options configures an Engine.
type Options struct {
	// Heartbeat is the keep-alive interval on open streams. Zero disables it.
	Heartbeat time.Duration
	Now       func() time.Time
}

// LaunchOptions configures one simulated job.
type LaunchOptions struct {
	TestType string
	// FailAt makes the job fail once when it enters this stage.
	FailAt task.State
}

var (
	_ api.TaskAPI   = (*Engine)(nil)
	_ stream.Dialer = (*Engine)(nil)
)

// Engine holds the simulated jobs, newest first.
type Engine struct {
	heartbeat time.Duration
	now       func() time.Time

	mu   sync.Mutex
	jobs []*job
	subs map[string][]chan string
}

type job struct {
	t      task.Task
	pct    int
	stage  int
	seq    int
	failAt task.State
	began  time.Time
}

// New creates an empty Engine.
func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		heartbeat: opts.Heartbeat,
		now:       opts.Now,
		subs:      make(map[string][]chan string),
	}
}

// Launch queues a new pending job and returns its record.
func (e *Engine) Launch(opts LaunchOptions) task.Task {
	if opts.TestType == "" {
		opts.TestType = string(api.TestTypeAutomated)
	}
	j := &job{
		t: task.Task{
			RequestID:     uuid.NewString(),
			Status:        task.StatePending,
			ResultSummary: &task.ResultSummary{TestType: opts.TestType},
		},
		failAt: opts.FailAt,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append([]*job{j}, e.jobs...)
	return j.t.Clone()
}

// Seed fills the engine with a job in each interesting state: one
// completed, one failed during validation, one mid-generation and one
// pending.
func (e *Engine) Seed() {
	done := e.Launch(LaunchOptions{})
	failed := e.Launch(LaunchOptions{FailAt: task.StateValidation, TestType: string(api.TestTypeBoth)})
	running := e.Launch(LaunchOptions{TestType: string(api.TestTypeManual)})
	e.Launch(LaunchOptions{})

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range []string{done.RequestID, failed.RequestID} {
		j := e.find(id)
		for !j.t.Status.IsTerminal() {
			e.advance(j)
		}
	}
	j := e.find(running.RequestID)
	for j.pct < 35 {
		e.advance(j)
	}
}

// Run advances every job once per interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Step advances every unfinished job by StepPercent.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, j := range e.jobs {
		e.advance(j)
	}
}

// advance must be called with mu held.
func (e *Engine) advance(j *job) {
	if j.t.Status.IsTerminal() {
		return
	}
	now := e.now()
	if j.t.StartedAt == nil {
		j.t.StartedAt = &now
		j.began = now
	}

	j.pct = min(100, j.pct+StepPercent)
	stage := stageFor(j.pct)
	if stage != j.stage {
		j.finishStage(now)
		j.stage = stage
	}
	st := Pipeline[stage]
	j.t.Status = st.State
	j.t.CurrentStep = st.Step
	j.t.Progress = task.IntPtr(j.pct)

	if j.failAt == st.State {
		j.failAt = ""
		j.t.Status = task.StateFailed
		j.t.ErrorMessage = fmt.Sprintf("%s agent failed: upstream model timed out", st.State)
		e.emit(j, "error", map[string]any{
			"request_id": j.t.RequestID,
			"error":      j.t.ErrorMessage,
		})
		e.closeSubs(j.t.RequestID)
		return
	}

	switch st.State {
	case task.StateGeneration:
		n := len(j.t.Tests) + 1
		j.t.Tests = append(j.t.Tests, task.TestCase{
			ID:               fmt.Sprintf("%s-t%d", j.t.ShortID(), n),
			Name:             fmt.Sprintf("generated scenario %d", n),
			Type:             j.t.ResultSummary.TestType,
			Priority:         1 + n%3,
			ValidationStatus: "pending",
			CreatedAt:        now,
		})
	case task.StateValidation:
		for i := range j.t.Tests {
			if j.t.Tests[i].ValidationStatus == "pending" {
				j.t.Tests[i].ValidationStatus = "passed"
				break
			}
		}
	}

	if j.pct == 100 {
		j.finishStage(now)
		j.complete(now)
		e.emit(j, "completed", map[string]any{
			"request_id":     j.t.RequestID,
			"status":         task.StateCompleted,
			"result_summary": j.t.ResultSummary,
		})
		e.closeSubs(j.t.RequestID)
		return
	}
	e.emit(j, "progress", j.progressPayload())
}

func stageFor(pct int) int {
	if pct <= 0 {
		return 0
	}
	share := 100 / len(Pipeline)
	return min((pct-1)/share, len(Pipeline)-1)
}

func (j *job) finishStage(now time.Time) {
	st := Pipeline[j.stage]
	for _, m := range j.t.Metrics {
		if m.AgentName == string(st.State) {
			return
		}
	}
	j.t.Metrics = append(j.t.Metrics, task.AgentMetric{
		AgentName:      string(st.State),
		DurationMS:     now.Sub(j.began).Milliseconds(),
		Status:         "completed",
		LLMTokensTotal: 1200 * (j.stage + 1),
	})
	j.began = now
}

func (j *job) complete(now time.Time) {
	var validated int
	for _, tc := range j.t.Tests {
		if tc.ValidationStatus == "passed" {
			validated++
		}
	}
	j.t.Status = task.StateCompleted
	j.t.CurrentStep = ""
	j.t.CompletedAt = &now
	j.t.ResultSummary.TestsGenerated = len(j.t.Tests)
	j.t.ResultSummary.TestsValidated = validated
	j.t.ResultSummary.TestsOptimized = validated
}

func (j *job) progressPayload() map[string]any {
	return map[string]any{
		"request_id":  j.t.RequestID,
		"status":      j.t.Status,
		"step":        j.t.CurrentStep,
		"progress":    j.pct,
		"tests_count": len(j.t.Tests),
	}
}

// currentFrame renders the job's state as the frame a new stream starts with.
func (j *job) currentFrame() string {
	switch j.t.Status {
	case task.StateCompleted:
		return formatFrame(j.seq, "completed", map[string]any{
			"request_id":     j.t.RequestID,
			"status":         task.StateCompleted,
			"result_summary": j.t.ResultSummary,
		})
	case task.StateFailed:
		return formatFrame(j.seq, "error", map[string]any{
			"request_id": j.t.RequestID,
			"error":      j.t.ErrorMessage,
		})
	default:
		return formatFrame(j.seq, "progress", j.progressPayload())
	}
}

func formatFrame(id int, event string, payload any) string {
	data, _ := json.Marshal(payload)
	var b strings.Builder
	if id > 0 {
		fmt.Fprintf(&b, "id: %d\n", id)
	}
	fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", event, data)
	return b.String()
}

// emit must be called with mu held. Slow subscribers miss frames rather
// than stall the engine.
func (e *Engine) emit(j *job, event string, payload any) {
	j.seq++
	frame := formatFrame(j.seq, event, payload)
	for _, ch := range e.subs[j.t.RequestID] {
		select {
		case ch <- frame:
		default:
		}
	}
}

// closeSubs must be called with mu held.
func (e *Engine) closeSubs(id string) {
	for _, ch := range e.subs[id] {
		close(ch)
	}
	delete(e.subs, id)
}

func (e *Engine) unsubscribe(id string, ch chan string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.subs[id]
	for i, c := range subs {
		if c == ch {
			e.subs[id] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// find must be called with mu held.
func (e *Engine) find(id string) *job {
	for _, j := range e.jobs {
		if j.t.RequestID == id {
			return j
		}
	}
	return nil
}

func notFound(op, id string) error {
	return &api.DomainError{Op: op, StatusCode: 404, Detail: fmt.Sprintf("Task with ID %s not found", id)}
}

// ListTasks returns a page of task summaries.
func (e *Engine) ListTasks(ctx context.Context, opts api.ListOptions) ([]task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]task.Task, 0, len(e.jobs))
	for _, j := range e.jobs {
		if opts.Status != "" && j.t.Status != opts.Status {
			continue
		}
		t := j.t.Clone()
		t.Tests, t.Metrics = nil, nil
		out = append(out, t)
	}
	offset := min(max(opts.Offset, 0), len(out))
	out = out[offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// GetTask returns one task with the requested nested collections.
func (e *Engine) GetTask(ctx context.Context, id string, opts api.DetailOptions) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	j := e.find(id)
	if j == nil {
		return nil, notFound("get task", id)
	}
	t := j.t.Clone()
	if !opts.IncludeTests {
		t.Tests = nil
	}
	if !opts.IncludeMetrics {
		t.Metrics = nil
	}
	return &t, nil
}

// ResumeTask restarts a failed job from the progress it had reached.
func (e *Engine) ResumeTask(ctx context.Context, id string) (*api.ResumeResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	j := e.find(id)
	switch {
	case j == nil:
		return nil, notFound("resume task", id)
	case j.t.Status == task.StateCompleted:
		return nil, &api.DomainError{Op: "resume task", StatusCode: 400, Detail: "Task is already completed"}
	case j.t.Status != task.StateFailed:
		return nil, &api.DomainError{
			Op:         "resume task",
			StatusCode: 400,
			Detail:     fmt.Sprintf("Task is not in failed state (current: %s)", j.t.Status),
		}
	}

	j.t.Status = task.StateStarted
	j.t.ErrorMessage = ""
	j.t.RetryCount++
	j.began = e.now()
	return &api.ResumeResponse{
		RequestID: id,
		TaskID:    "sim-" + id,
		Status:    string(task.StateStarted),
		Message:   "Task resumed from last checkpoint",
	}, nil
}

// Dial opens the event feed of one job. The feed starts with a frame for the
// job's current state and ends after its terminal frame.
func (e *Engine) Dial(ctx context.Context, taskID, lastEventID string) (io.ReadCloser, error) {
	e.mu.Lock()
	j := e.find(taskID)
	if j == nil {
		e.mu.Unlock()
		return nil, &stream.PermanentError{StatusCode: 404, Body: fmt.Sprintf(`{"detail":"Task with ID %s not found"}`, taskID)}
	}
	ch := make(chan string, 64)
	ch <- j.currentFrame()
	if j.t.Status.IsTerminal() {
		close(ch)
	} else {
		e.subs[taskID] = append(e.subs[taskID], ch)
	}
	e.mu.Unlock()

	pr, pw := io.Pipe()
	go e.pump(ctx, taskID, pw, ch)
	return pr, nil
}

func (e *Engine) pump(ctx context.Context, taskID string, pw *io.PipeWriter, ch chan string) {
	defer e.unsubscribe(taskID, ch)
	defer pw.Close()

	var heartbeat <-chan time.Time
	if e.heartbeat > 0 {
		t := time.NewTicker(e.heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat:
			if _, err := io.WriteString(pw, ": heartbeat\n\n"); err != nil {
				return
			}
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := io.WriteString(pw, frame); err != nil {
				return
			}
		}
	}
}
