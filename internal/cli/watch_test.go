package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/config"
	"github.com/testops/taskwatch/internal/testutil"
)

func TestWatchCommand_Args(t *testing.T) {
	assert.Equal(t, "watch [task-id]", watchCmd.Use)

	assert.NoError(t, watchCmd.Args(watchCmd, []string{}))
	assert.NoError(t, watchCmd.Args(watchCmd, []string{"T1"}))
	assert.Error(t, watchCmd.Args(watchCmd, []string{"T1", "T2"}))
}

func TestWatchCommand_Flags(t *testing.T) {
	tests := []struct {
		name string
		def  string
	}{
		{"filter", ""},
		{"status-addr", ""},
		{"interval", config.DefaultPollInterval.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := watchCmd.Flags().Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestWatch_InvalidFilter(t *testing.T) {
	_, err := execute(t, nil, "watch", "--filter", "sleeping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task status")
}

func TestNewMonitor_PollsGateway(t *testing.T) {
	gw := testutil.NewGateway(t)
	gw.SetTasks(testutil.SampleTasks())

	cfg := config.DefaultConfig()
	cfg.API.URL = gw.URL()
	cfg.Monitor.PollInterval = time.Hour
	cfg.Monitor.PageSize = 10

	m := newMonitor(&cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		return len(m.Snapshot().Tasks) == 4
	}, 5*time.Second, 10*time.Millisecond)

	snap := m.Snapshot()
	testutil.AssertTaskIDs(t, snap.Tasks, "req-pending", "req-generating", "req-completed", "req-failed")
	assert.Empty(t, snap.SelectedID)
	assert.Equal(t, "10", gw.Requests()[0].Query.Get("limit"))
}
