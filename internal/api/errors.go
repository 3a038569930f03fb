package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TransportError reports that the gateway could not be reached or answered
// with a server-side failure. Callers keep their last known state and retry
// on the next poll.
type TransportError struct {
	Op         string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DomainError is a request the gateway understood and rejected, for example
// resuming a task that already completed.
type DomainError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// DecodeError reports a response body that could not be parsed.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsDomain reports whether err is (or wraps) a DomainError.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// IsNotFound reports whether err is a DomainError for a missing resource.
func IsNotFound(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.StatusCode == http.StatusNotFound
}

// UserMessage renders err as a short message suitable for an error banner.
func UserMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Detail
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.StatusCode != 0 {
			return fmt.Sprintf("gateway error (HTTP %d)", te.StatusCode)
		}
		return "cannot reach the API gateway; check that it is running"
	}
	return err.Error()
}

// errorFromResponse classifies a non-2xx response. 4xx responses other than
// 408 and 429 become DomainErrors carrying the gateway's detail text.
func errorFromResponse(op string, resp *http.Response, body []byte) error {
	detail := extractDetail(body)
	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(detail)}
	default:
		if detail == "" {
			detail = fmt.Sprintf("request rejected with status %d", resp.StatusCode)
		}
		return &DomainError{Op: op, StatusCode: resp.StatusCode, Detail: detail}
	}
}

// extractDetail pulls the human-readable message out of a FastAPI error body.
// Validation failures carry a list of {loc, msg} objects instead of a string.
func extractDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return string(payload.Detail)
}
