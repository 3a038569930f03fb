package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// MustUnmarshalJSON unmarshals JSON data into v, failing the test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v))
}

// WriteTestFile writes content to a file in the test directory.
// Creates parent directories as needed.
func WriteTestFile(t *testing.T, basePath, relativePath string, content []byte) {
	t.Helper()
	fullPath := filepath.Join(basePath, relativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, content, 0644))
}

// WriteConfig writes content as taskwatch.yaml in a fresh temp directory and
// returns the file path.
func WriteConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	WriteTestFile(t, dir, "taskwatch.yaml", []byte(content))
	return filepath.Join(dir, "taskwatch.yaml")
}
