// Package testutil provides shared test utilities for taskwatch.
//
// # Fixtures
//
// The fixtures.go file provides sample data for testing:
//
//   - SampleTime - the fixed instant all fixtures are relative to
//   - SampleTasks() - task summaries in every lifecycle stage
//   - SampleDetail(id) - a task detail carrying tests and metrics
//   - ProgressFrame, CompletedFrame, ErrorFrame - raw event stream frames
//
// # Fake gateway
//
// The gateway.go file provides an httptest-backed fake of the task gateway:
//
//   - NewGateway(t) - starts a server that is closed when the test ends
//   - Gateway.SetTasks, SetDetail, SetStream - script responses
//   - Gateway.Requests - the requests seen so far
//
// # Environment Helpers
//
// The env.go file provides test environment setup:
//
//   - MustUnmarshalJSON(t, data, v) - unmarshals JSON or fails test
//   - WriteTestFile(t, base, path, content) - writes a file in test dir
//   - WriteConfig(t, content) - writes a taskwatch.yaml and returns its path
//
// # Assertions
//
//   - AssertTaskIDs(t, tasks, ids...) - compares list order by request ID
//   - AssertTaskStatus(t, task, status) - checks a task's lifecycle state
//
// # Usage
//
//	func TestSomething(t *testing.T) {
//	    gw := testutil.NewGateway(t)
//	    gw.SetTasks(testutil.SampleTasks())
//	    client := api.NewClient(gw.URL())
//	    // ... run test ...
//	}
package testutil
