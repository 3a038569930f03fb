// Standalone fake gateway for trying taskwatch without a backend.
// Run with: go run ./cmd/debug-server [addr]
//
// Jobs are simulated in memory and advance on a timer. Point the CLI at it:
//
//	taskwatch --api-url http://localhost:8000/api/v1 watch
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/testops/taskwatch/internal/logging"
	"github.com/testops/taskwatch/internal/simulate"
)

func main() {
	addr := "localhost:8000"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	logging.SetLevel(logging.LevelInfo)
	log := logging.Default().Component("debug-server")

	engine := simulate.New(simulate.Options{Heartbeat: 15 * time.Second})
	engine.Seed()

	srv := &http.Server{
		Addr:              addr,
		Handler:           engine.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go engine.Run(ctx, time.Second)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	}()

	log.Info("fake gateway listening", "addr", addr)
	fmt.Printf("Gateway running on http://%s/api/v1\n", addr)
	fmt.Println("\nTry with:")
	fmt.Printf("  taskwatch --api-url http://%s/api/v1 tasks list\n", addr)
	fmt.Printf("  taskwatch --api-url http://%s/api/v1 watch\n", addr)
	fmt.Printf("  curl -N http://%s/api/v1/stream/<request-id>\n", addr)

	<-ctx.Done()
	fmt.Println("\nShutting down...")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown failed", "error", err)
	}
}
