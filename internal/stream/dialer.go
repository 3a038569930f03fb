package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Dialer opens the raw event feed for one task. lastEventID is sent back to
// servers that support resuming; it may be empty.
type Dialer interface {
	Dial(ctx context.Context, taskID, lastEventID string) (io.ReadCloser, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, taskID, lastEventID string) (io.ReadCloser, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, taskID, lastEventID string) (io.ReadCloser, error) {
	return f(ctx, taskID, lastEventID)
}

// PermanentError is a dial failure that reconnecting cannot fix, such as the
// task not existing.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body)
}

// IsPermanent reports whether err is (or wraps) a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// HTTPDialer dials {baseURL}/stream/{taskID} over HTTP.
type HTTPDialer struct {
	// baseURL is the gateway API root (e.g., "http://localhost:8000/api/v1")
	baseURL string

	// httpClient must not set a timeout; streams are long-lived.
	httpClient *http.Client

	authToken string
}

// DialerOption configures an HTTPDialer.
type DialerOption func(*HTTPDialer)

// WithAuthToken sets the bearer token for the stream request.
func WithAuthToken(token string) DialerOption {
	return func(d *HTTPDialer) {
		d.authToken = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) DialerOption {
	return func(d *HTTPDialer) {
		d.httpClient = client
	}
}

// NewHTTPDialer creates an HTTPDialer for the given API root.
func NewHTTPDialer(baseURL string, opts ...DialerOption) *HTTPDialer {
	d := &HTTPDialer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0, // No timeout for streaming connections
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// URL returns the stream endpoint for a task.
func (d *HTTPDialer) URL(taskID string) string {
	return d.baseURL + "/stream/" + url.PathEscape(taskID)
}

// Dial connects to the task's stream. 4xx responses other than 408 and 429
// are returned as *PermanentError.
func (d *HTTPDialer) Dial(ctx context.Context, taskID, lastEventID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL(taskID), nil)
	if err != nil {
		return nil, &PermanentError{Body: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	if d.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.authToken)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		text := strings.TrimSpace(string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout &&
			resp.StatusCode != http.StatusTooManyRequests {
			return nil, &PermanentError{StatusCode: resp.StatusCode, Body: text}
		}
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, text)
	}

	return resp.Body, nil
}
