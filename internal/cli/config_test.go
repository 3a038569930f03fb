package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/config"
	"github.com/testops/taskwatch/internal/testutil"
)

func TestConfigShow(t *testing.T) {
	cfgFile := testutil.WriteConfig(t, "api:\n  url: http://gw:8000/api/v1\n  token: s3cret\nmonitor:\n  page_size: 25\n")

	out, err := execute(t, nil, "--config", cfgFile, "config", "show", "--log-level", "debug")
	require.NoError(t, err)

	assert.Contains(t, out, "url: http://gw:8000/api/v1")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "page_size: 25")
	assert.Contains(t, out, "level: debug")
}

func TestConfigShow_InvalidFile(t *testing.T) {
	cfgFile := testutil.WriteConfig(t, "monitor:\n  page_size: 500\n")

	_, err := execute(t, nil, "--config", cfgFile, "config", "show")
	require.Error(t, err)
	var verr config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "monitor.page_size", verr.Field)
}

func TestConfigInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")

	out, err := execute(t, nil, "config", "init", dir)
	require.NoError(t, err)
	path := filepath.Join(dir, "taskwatch.yaml")
	assert.Contains(t, out, path)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), *cfg)

	_, err = execute(t, nil, "config", "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, os.WriteFile(path, []byte("broken"), 0644))
	_, err = execute(t, nil, "config", "init", dir, "--force")
	require.NoError(t, err)
	_, err = config.LoadFile(path)
	assert.NoError(t, err)
}
