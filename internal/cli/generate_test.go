package cli

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/testutil"
)

func TestGenerateCommands_Flags(t *testing.T) {
	f := generateCmd.PersistentFlags().Lookup("follow")
	require.NotNil(t, f)
	assert.Equal(t, "f", f.Shorthand)

	f = generateTestCasesCmd.Flags().Lookup("test-type")
	require.NotNil(t, f)
	assert.Equal(t, "automated", f.DefValue)

	f = generateTestCasesCmd.Flags().Lookup("requirement")
	require.NotNil(t, f)
	assert.Equal(t, "r", f.Shorthand)

	assert.Error(t, generateTestCasesCmd.Args(generateTestCasesCmd, []string{"extra"}))
}

func TestGenerateTestCases(t *testing.T) {
	gw := testutil.NewGateway(t)
	gw.SetNextID("gen-1")

	out, err := execute(t, gw, "generate", "test-cases",
		"--url", "https://shop.example.com/login",
		"-r", "user can log in",
		"-r", "bad password, is rejected",
		"--test-type", "both",
		"--langgraph")
	require.NoError(t, err)
	assert.Contains(t, out, "gen-1")
	assert.Contains(t, out, "pending")

	reqs := gw.RequestsTo(http.MethodPost, "/api/v1/generate/test-cases")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{
		"url": "https://shop.example.com/login",
		"requirements": ["user can log in", "bad password, is rejected"],
		"test_type": "both",
		"use_langgraph": true
	}`, string(reqs[0].Body))
}

func TestGenerateTestCases_Invalid(t *testing.T) {
	gw := testutil.NewGateway(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing url", []string{"-r", "x"}, `required flag(s) "url" not set`},
		{"relative url", []string{"--url", "/login", "-r", "x"}, "absolute"},
		{"no requirements", []string{"--url", "https://a.example"}, "at least one requirement"},
		{"bad test type", []string{"--url", "https://a.example", "-r", "x", "--test-type", "fuzz"}, "test type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, gw, append([]string{"generate", "test-cases"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Empty(t, gw.Requests())
}

func TestGenerateTestCases_Follow(t *testing.T) {
	gw := testutil.NewGateway(t)
	gw.SetNextID("gen-2")
	gw.SetStream("gen-2",
		testutil.ProgressFrame("gen-2", "generation", 50),
		testutil.CompletedFrame("gen-2"))

	out, err := execute(t, gw, "generate", "test-cases",
		"--url", "https://a.example", "-r", "x", "--follow", "-o", "json")
	require.NoError(t, err)

	assert.Contains(t, out, `"request_id": "gen-2"`)
	assert.Contains(t, out, "generation  50%")
	assert.Contains(t, out, "3 tests generated")
}

func TestGenerateAPITests_FromFile(t *testing.T) {
	gw := testutil.NewGateway(t)
	gw.SetNextID("gen-api")

	doc := "openapi: 3.0.0\npaths:\n  /users: {}\n"
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	out, err := execute(t, gw, "generate", "api-tests",
		"--openapi-file", path, "--endpoint", "GET /users", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "request_id: gen-api")

	reqs := gw.RequestsTo(http.MethodPost, "/api/v1/generate/api-tests")
	require.Len(t, reqs, 1)
	var body api.GenerateAPITestsRequest
	testutil.MustUnmarshalJSON(t, reqs[0].Body, &body)
	assert.Equal(t, doc, body.OpenAPISpec)
	assert.Equal(t, []string{"GET /users"}, body.Endpoints)
	assert.Empty(t, body.OpenAPIURL)
}

func TestGenerateAPITests_Invalid(t *testing.T) {
	gw := testutil.NewGateway(t)

	_, err := execute(t, gw, "generate", "api-tests")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAPI")

	_, err = execute(t, gw, "generate", "api-tests", "--openapi-url", "https://a.example/openapi.json", "--openapi-file", "x.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")

	_, err = execute(t, gw, "generate", "api-tests", "--openapi-file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read OpenAPI document")

	assert.Empty(t, gw.Requests())
}

func TestTrackedID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "req", trackedID(&api.GenerateResponse{RequestID: "req", TaskID: "celery"}))
	assert.Equal(t, "celery", trackedID(&api.GenerateResponse{TaskID: "celery"}))
}
