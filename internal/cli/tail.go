package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/testops/taskwatch/internal/config"
	"github.com/testops/taskwatch/internal/metrics"
	"github.com/testops/taskwatch/internal/stream"
)

var (
	tailJSON  bool
	tailQuiet bool
)

var tailCmd = &cobra.Command{
	Use:   "tail <task-id>",
	Short: "Print a task's live events until it finishes",
	Long: `Follows the task's event stream and prints every progress, completion
and failure event as it arrives. Dropped connections are retried with
backoff. The command exits when the task completes, and fails when the task
fails or the stream cannot be recovered.

Example:
  taskwatch tail 6f1c0d3e-...
  taskwatch tail 6f1c0d3e-... --json | jq .kind`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().BoolVar(&tailJSON, "json", false, "Print events as JSON lines")
	tailCmd.Flags().BoolVarP(&tailQuiet, "quiet", "q", false, "Do not print connection changes")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	return followTask(commandContext(cmd), cmd, cfg, args[0])
}

// followTask prints id's events until a terminal event arrives or the user
// interrupts. A failure event is returned as an error.
func followTask(ctx context.Context, cmd *cobra.Command, cfg *config.Config, id string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := streamOptions(cfg)
	opts.Observer = metrics.Default()
	sub := stream.Subscribe(ctx, newDialer(cfg), id, opts)
	defer sub.Close()

	p := &eventPrinter{w: cmd.OutOrStdout(), json: tailJSON, quiet: tailQuiet}
	var last *stream.Event
	connected := false
	for u := range sub.Updates() {
		if u.Event == nil {
			if u.Connected != connected {
				connected = u.Connected
				p.connection(id, connected)
			}
			continue
		}
		connected = u.Connected
		last = u.Event
		if err := p.event(u.Event); err != nil {
			return err
		}
	}

	if last != nil && last.Kind == stream.KindFailed {
		return fmt.Errorf("task %s failed: %s", id, last.Message)
	}
	return nil
}

// eventPrinter renders classified stream events for a terminal or a pipe.
type eventPrinter struct {
	w     io.Writer
	json  bool
	quiet bool
}

func (p *eventPrinter) connection(id string, connected bool) {
	if p.quiet || p.json {
		return
	}
	if connected {
		fmt.Fprintf(p.w, "--- connected to %s ---\n", id)
	} else {
		fmt.Fprintf(p.w, "--- disconnected, retrying ---\n")
	}
}

func (p *eventPrinter) event(ev *stream.Event) error {
	if p.json {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	}
	_, err := fmt.Fprintf(p.w, "%s  %-9s %s\n", ev.ReceivedAt.Format("15:04:05"), ev.Kind, summarize(ev))
	return err
}

// summarize renders the interesting fields of an event on one line.
func summarize(ev *stream.Event) string {
	switch ev.Kind {
	case stream.KindFailed:
		return ev.Message
	case stream.KindCompleted:
		var body struct {
			ResultSummary struct {
				TestsGenerated *int `json:"tests_generated"`
			} `json:"result_summary"`
		}
		if json.Unmarshal(ev.Payload, &body) == nil && body.ResultSummary.TestsGenerated != nil {
			return fmt.Sprintf("%d tests generated", *body.ResultSummary.TestsGenerated)
		}
		return "done"
	}

	p, err := ev.Progress()
	if err != nil || p == nil {
		return string(ev.Payload)
	}
	var parts []string
	if p.Status != "" {
		parts = append(parts, p.Status)
	}
	if p.Step != "" {
		parts = append(parts, p.Step)
	}
	if p.Progress != nil {
		parts = append(parts, fmt.Sprintf("%d%%", *p.Progress))
	}
	if p.Message != "" {
		parts = append(parts, p.Message)
	}
	if len(parts) == 0 {
		return string(ev.Payload)
	}
	return strings.Join(parts, "  ")
}
