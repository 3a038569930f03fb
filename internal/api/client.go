// Package api is the HTTP client for the test-generation gateway: task list
// and detail queries, resume requests and job submission.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/testops/taskwatch/internal/task"
)

//go:generate mockgen -source=client.go -destination=mock_taskapi.go -package=api TaskAPI

// TaskAPI is the subset of the gateway used by the task monitor.
type TaskAPI interface {
	ListTasks(ctx context.Context, opts ListOptions) ([]task.Task, error)
	GetTask(ctx context.Context, id string, opts DetailOptions) (*task.Task, error)
	ResumeTask(ctx context.Context, id string) (*ResumeResponse, error)
}

var _ TaskAPI = (*Client)(nil)

// Client talks to the gateway's REST endpoints.
type Client struct {
	// baseURL is the gateway API root (e.g., "http://localhost:8000/api/v1")
	baseURL string

	// httpClient is the HTTP client used for requests
	httpClient *http.Client

	// authToken is the optional bearer token
	authToken string

	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAuthToken sets the bearer token sent with each request.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client for the given API root.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "taskwatch",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthToken returns the configured bearer token.
func (c *Client) AuthToken() string {
	return c.authToken
}

// StreamURL returns the event stream endpoint for a task.
func (c *Client) StreamURL(id string) string {
	return c.baseURL + "/stream/" + url.PathEscape(id)
}

// ListTasks returns one page of tasks, newest first.
func (c *Client) ListTasks(ctx context.Context, opts ListOptions) ([]task.Task, error) {
	limit := opts.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}

	var tasks []task.Task
	if err := c.do(ctx, "list tasks", http.MethodGet, "/tasks?"+q.Encode(), nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// GetTask fetches a single task, optionally with its tests and metrics.
func (c *Client) GetTask(ctx context.Context, id string, opts DetailOptions) (*task.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("get task: empty task id")
	}
	q := url.Values{}
	q.Set("include_tests", strconv.FormatBool(opts.IncludeTests))
	q.Set("include_metrics", strconv.FormatBool(opts.IncludeMetrics))

	var t task.Task
	path := "/tasks/" + url.PathEscape(id) + "?" + q.Encode()
	if err := c.do(ctx, "get task", http.MethodGet, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ResumeTask asks the gateway to continue a failed task from its last checkpoint.
func (c *Client) ResumeTask(ctx context.Context, id string) (*ResumeResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("resume task: empty task id")
	}
	var resp ResumeResponse
	path := "/tasks/" + url.PathEscape(id) + "/resume"
	if err := c.do(ctx, "resume task", http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateTestCases submits a UI test generation job.
func (c *Client) GenerateTestCases(ctx context.Context, req *GenerateTestCasesRequest) (*GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, &DomainError{Op: "generate test cases", StatusCode: http.StatusUnprocessableEntity, Detail: err.Error()}
	}
	var resp GenerateResponse
	if err := c.do(ctx, "generate test cases", http.MethodPost, "/generate/test-cases", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateAPITests submits an API test generation job.
func (c *Client) GenerateAPITests(ctx context.Context, req *GenerateAPITestsRequest) (*GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, &DomainError{Op: "generate api tests", StatusCode: http.StatusUnprocessableEntity, Detail: err.Error()}
	}
	var resp GenerateResponse
	if err := c.do(ctx, "generate api tests", http.MethodPost, "/generate/api-tests", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	c.addHeaders(req)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(op, resp, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

// addHeaders sets auth, tracing and content negotiation headers.
func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
