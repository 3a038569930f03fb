package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/testops/taskwatch/internal/config"
	"github.com/testops/taskwatch/internal/logging"
	"github.com/testops/taskwatch/internal/metrics"
	"github.com/testops/taskwatch/internal/monitor"
	"github.com/testops/taskwatch/internal/server"
	"github.com/testops/taskwatch/internal/task"
	"github.com/testops/taskwatch/internal/tui"
	"golang.org/x/sync/errgroup"
)

var (
	watchFilter     string
	watchStatusAddr string
	watchInterval   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [task-id]",
	Short: "Open the interactive task monitor",
	Long: `Opens a terminal view of recent tasks. The list is refreshed on every
poll; pressing enter on a task opens its detail pane and follows its live
event stream. Moving the cursor never changes the open task.

If a task ID is given it is opened immediately.

With --status-addr, a read-only status server exposes /healthz,
/api/snapshot, /api/tasks/:id and /metrics while the monitor runs.

Keys:
  ↑/↓ or j/k  move            enter  open task      esc  close task
  r           resume          f      cycle filter   x    dismiss notice
  R           refresh now     ?      help           q    quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

// watchBindings maps config keys to watch's local flags.
var watchBindings = map[string]string{
	"server.addr":           "status-addr",
	"monitor.poll_interval": "interval",
}

func init() {
	watchCmd.Flags().StringVar(&watchFilter, "filter", "", "Initial status filter (all, pending, processing, completed, failed)")
	watchCmd.Flags().StringVar(&watchStatusAddr, "status-addr", "", "Serve the status API on this address, e.g. 127.0.0.1:9108")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", config.DefaultPollInterval, "Task list poll interval")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	filter, err := task.ParseFilter(watchFilter)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, watchBindings)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, true, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	m := newMonitor(cfg)

	var srv *server.Server
	if cfg.Server.Addr != "" {
		srv, err = server.NewServerFromConfig(&cfg.Server, m, prometheus.DefaultGatherer)
		if err != nil {
			return fmt.Errorf("failed to create status server: %w", err)
		}
	}

	if filter != "" {
		if err := m.SetFilter(filter); err != nil {
			return err
		}
	}
	// A task named on the command line is an explicit selection.
	if len(args) == 1 {
		if err := m.Select(args[0]); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Run(gctx)
	})
	if srv != nil {
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	runner := tui.NewRunner(tui.NewTUI(cmd.OutOrStdout()), m, logging.Default())
	g.Go(func() error {
		defer quit()
		return runner.Run(gctx)
	})

	return g.Wait()
}

// newMonitor wires a monitor to the configured gateway.
func newMonitor(cfg *config.Config) *monitor.Monitor {
	return monitor.New(monitor.Config{
		API:           newClient(cfg),
		Dialer:        newDialer(cfg),
		PollInterval:  cfg.Monitor.PollInterval,
		PageSize:      cfg.Monitor.PageSize,
		CacheSize:     cfg.Cache.DetailSize,
		StreamOptions: streamOptions(cfg),
		Metrics:       metrics.Default(),
		Logger:        logging.Default(),
	})
}
