// tui-demo is a manual test program for the watch view.
// Run with: go run ./cmd/tui-demo
//
// It drives the real monitor and terminal UI against simulated jobs, so
// no gateway is needed. The seeded list holds one task in each state:
// - a completed job with tests and agent metrics
// - a job that failed during validation (press 'r' to resume it)
// - a job mid-generation
// - a pending job
//
// Press '?' for key help and 'q' to quit.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/testops/taskwatch/internal/logging"
	"github.com/testops/taskwatch/internal/monitor"
	"github.com/testops/taskwatch/internal/simulate"
	"github.com/testops/taskwatch/internal/stream"
	"github.com/testops/taskwatch/internal/tui"
	"golang.org/x/sync/errgroup"
)

func main() {
	fmt.Println("TUI Demo - Simulated Task Monitor")
	fmt.Println("=================================")
	fmt.Println()
	fmt.Println("Jobs advance every 700ms. Select a running job with Enter to")
	fmt.Println("follow its live stream, or resume the failed one with 'r'.")
	fmt.Println()
	fmt.Println("Press Enter to start...")
	fmt.Scanln()

	if err := runDemo(); err != nil {
		fmt.Fprintf(os.Stderr, "Demo error: %v\n", err)
		os.Exit(1)
	}
}

func runDemo() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	// Logs would tear the alternate screen.
	logging.SetWriter(io.Discard)

	engine := simulate.New(simulate.Options{Heartbeat: 5 * time.Second})
	engine.Seed()

	m := monitor.New(monitor.Config{
		API:          engine,
		Dialer:       engine,
		PollInterval: time.Second,
		PageSize:     20,
		StreamOptions: stream.Options{
			ReconnectInterval:    200 * time.Millisecond,
			MaxReconnectInterval: 2 * time.Second,
			MaxReconnectAttempts: 3,
		},
	})

	runner := tui.NewRunner(tui.NewTUI(os.Stdout), m, logging.Default())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		engine.Run(gctx, 700*time.Millisecond)
		return nil
	})
	g.Go(func() error { return m.Run(gctx) })
	g.Go(func() error {
		defer quit()
		return runner.Run(gctx)
	})

	// Launch a fresh job now and then so the list keeps moving.
	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				engine.Launch(simulate.LaunchOptions{})
			}
		}
	})

	return g.Wait()
}

