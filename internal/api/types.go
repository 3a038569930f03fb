package api

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/testops/taskwatch/internal/task"
)

// ListOptions selects a page of tasks. Limit is clamped to 1..100.
type ListOptions struct {
	Limit  int
	Offset int
	Status task.State
}

// DetailOptions chooses which nested collections GetTask loads.
type DetailOptions struct {
	IncludeTests   bool
	IncludeMetrics bool
}

// FullDetail loads both tests and metrics.
var FullDetail = DetailOptions{IncludeTests: true, IncludeMetrics: true}

// ResumeResponse is returned when a resume request is accepted.
type ResumeResponse struct {
	RequestID string `json:"request_id"`
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// TestType selects what kind of tests the generator produces.
type TestType string

const (
	TestTypeManual    TestType = "manual"
	TestTypeAutomated TestType = "automated"
	TestTypeBoth      TestType = "both"
)

// GenerateTestCasesRequest launches UI test generation for a page.
type GenerateTestCasesRequest struct {
	URL          string         `json:"url"`
	Requirements []string       `json:"requirements"`
	TestType     TestType       `json:"test_type"`
	Options      map[string]any `json:"options,omitempty"`
	UseLangGraph *bool          `json:"use_langgraph,omitempty"`
}

// Validate checks the request the same way the gateway does.
func (r *GenerateTestCasesRequest) Validate() error {
	u, err := url.Parse(r.URL)
	if r.URL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	if len(r.Requirements) == 0 {
		return errors.New("at least one requirement is needed")
	}
	switch r.TestType {
	case TestTypeManual, TestTypeAutomated, TestTypeBoth:
	default:
		return fmt.Errorf("test type must be manual, automated or both, got %q", r.TestType)
	}
	return nil
}

// GenerateAPITestsRequest launches API test generation from an OpenAPI document.
type GenerateAPITestsRequest struct {
	OpenAPIURL  string         `json:"openapi_url,omitempty"`
	OpenAPISpec string         `json:"openapi_spec,omitempty"`
	Endpoints   []string       `json:"endpoints,omitempty"`
	TestTypes   []string       `json:"test_types,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// Validate checks that an OpenAPI source was given.
func (r *GenerateAPITestsRequest) Validate() error {
	if r.OpenAPIURL == "" && r.OpenAPISpec == "" {
		return errors.New("either an OpenAPI URL or an OpenAPI document is required")
	}
	if r.OpenAPIURL != "" {
		u, err := url.Parse(r.OpenAPIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("openapi url must be an absolute http(s) URL")
		}
	}
	return nil
}

// GenerateResponse identifies the job created by a generate request.
type GenerateResponse struct {
	RequestID      string    `json:"request_id"`
	TaskID         string    `json:"task_id"`
	Status         string    `json:"status"`
	StreamURL      string    `json:"stream_url"`
	CreatedAt      time.Time `json:"created_at"`
	EndpointsCount *int      `json:"endpoints_count,omitempty"`
}
