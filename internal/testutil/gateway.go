package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testops/taskwatch/internal/task"
)

// RecordedRequest is one request received by a Gateway.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Gateway is an in-process fake of the task gateway's REST and stream
// endpoints, rooted at URL().
type Gateway struct {
	server *httptest.Server

	mu       sync.Mutex
	tasks    []task.Task
	details  map[string]task.Task
	streams  map[string][]string
	nextID   string
	requests []RecordedRequest
}

// NewGateway starts a fake gateway that is closed when the test ends.
func NewGateway(t *testing.T) *Gateway {
	t.Helper()

	g := &Gateway{
		details: make(map[string]task.Task),
		streams: make(map[string][]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tasks", g.list)
	mux.HandleFunc("GET /api/v1/tasks/{id}", g.get)
	mux.HandleFunc("POST /api/v1/tasks/{id}/resume", g.resume)
	mux.HandleFunc("POST /api/v1/generate/{kind}", g.generate)
	mux.HandleFunc("GET /api/v1/stream/{id}", g.stream)

	g.server = httptest.NewServer(g.record(mux))
	t.Cleanup(g.server.Close)
	return g
}

// URL returns the API root, e.g. "http://127.0.0.1:1234/api/v1".
func (g *Gateway) URL() string {
	return g.server.URL + "/api/v1"
}

// SetTasks replaces the task list.
func (g *Gateway) SetTasks(tasks []task.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks = task.CloneAll(tasks)
}

// SetDetail sets the detail record served for t.RequestID.
func (g *Gateway) SetDetail(t task.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.details[t.RequestID] = t.Clone()
}

// SetStream scripts the frames served on id's stream. The response ends
// after the last frame. Streams for unknown ids answer 404.
func (g *Gateway) SetStream(id string, frames ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.streams[id] = frames
}

// SetNextID fixes the request ID returned by the next generate call.
func (g *Gateway) SetNextID(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID = id
}

// Requests returns the requests received so far.
func (g *Gateway) Requests() []RecordedRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]RecordedRequest(nil), g.requests...)
}

// RequestsTo returns the requests received for path.
func (g *Gateway) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range g.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (g *Gateway) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		g.mu.Lock()
		g.requests = append(g.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		g.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	status := task.State(q.Get("status"))

	g.mu.Lock()
	out := make([]task.Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		if status == "" || t.Status == status {
			out = append(out, t.Clone())
		}
	}
	g.mu.Unlock()

	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, ok := g.lookup(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Task with ID %s not found", id))
		return
	}
	if r.URL.Query().Get("include_tests") != "true" {
		t.Tests = nil
	}
	if r.URL.Query().Get("include_metrics") != "true" {
		t.Metrics = nil
	}
	writeJSON(w, http.StatusOK, t)
}

func (g *Gateway) lookup(id string) (task.Task, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.details[id]; ok {
		return t.Clone(), true
	}
	for _, t := range g.tasks {
		if t.RequestID == id {
			return t.Clone(), true
		}
	}
	return task.Task{}, false
}

func (g *Gateway) resume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, ok := g.lookup(id)
	switch {
	case !ok:
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Task with ID %s not found", id))
		return
	case t.Status == task.StateCompleted:
		writeDetail(w, http.StatusBadRequest, "Task is already completed")
		return
	case t.Status != task.StateFailed:
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Task is not in failed state (current: %s)", t.Status))
		return
	}

	g.mu.Lock()
	for i := range g.tasks {
		if g.tasks[i].RequestID == id {
			g.tasks[i].Status = task.StateStarted
			g.tasks[i].ErrorMessage = ""
		}
	}
	if d, ok := g.details[id]; ok {
		d.Status = task.StateStarted
		g.details[id] = d
	}
	g.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"request_id": id,
		"task_id":    "celery-" + id,
		"status":     "started",
		"message":    "Task resumed from last checkpoint",
	})
}

func (g *Gateway) generate(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if kind != "test-cases" && kind != "api-tests" {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}

	g.mu.Lock()
	id := g.nextID
	g.nextID = ""
	if id == "" {
		id = uuid.NewString()
	}
	g.tasks = append([]task.Task{{RequestID: id, Status: task.StatePending}}, g.tasks...)
	g.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": id,
		"task_id":    "celery-" + id,
		"status":     "pending",
		"stream_url": "/api/v1/stream/" + id,
		"created_at": SampleTime.Format(time.RFC3339),
	})
}

func (g *Gateway) stream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	g.mu.Lock()
	frames, ok := g.streams[id]
	g.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Task with ID %s not found", id))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, f := range frames {
		if _, err := io.WriteString(w, f); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
