package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/testops/taskwatch/internal/task"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// writeOutput renders v as JSON or YAML, or calls table for the table format.
func writeOutput(w io.Writer, format string, v any, table func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		if err := table(tw); err != nil {
			return err
		}
		return tw.Flush()
	}
}

func writeTaskTable(w io.Writer, tasks []task.Task, now time.Time) error {
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tSTEP\tSTARTED")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.RequestID, t.Status, formatProgress(t.Progress), dash(t.CurrentStep), formatAge(t.StartedAt, now))
	}
	return nil
}

func writeTaskDetail(w io.Writer, t *task.Task, now time.Time) error {
	fmt.Fprintf(w, "ID:\t%s\n", t.RequestID)
	fmt.Fprintf(w, "Status:\t%s\n", t.Status)
	fmt.Fprintf(w, "Progress:\t%s\n", formatProgress(t.Progress))
	fmt.Fprintf(w, "Step:\t%s\n", dash(t.CurrentStep))
	fmt.Fprintf(w, "Started:\t%s\n", formatAge(t.StartedAt, now))
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "Finished:\t%s\n", formatAge(t.CompletedAt, now))
	}
	if t.RetryCount > 0 {
		fmt.Fprintf(w, "Retries:\t%d\n", t.RetryCount)
	}
	if t.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:\t%s\n", t.ErrorMessage)
	}
	if rs := t.ResultSummary; rs != nil {
		fmt.Fprintf(w, "Result:\t%d generated, %d validated, %d optimized\n",
			rs.TestsGenerated, rs.TestsValidated, rs.TestsOptimized)
	}

	if len(t.Tests) > 0 {
		fmt.Fprintf(w, "\nTests (%d)\n", len(t.Tests))
		fmt.Fprintln(w, "NAME\tTYPE\tPRIORITY\tVALIDATION")
		for _, tc := range t.Tests {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", tc.Name, dash(tc.Type), tc.Priority, dash(tc.ValidationStatus))
		}
	}
	if len(t.Metrics) > 0 {
		fmt.Fprintln(w, "\nAgents")
		fmt.Fprintln(w, "AGENT\tDURATION\tSTATUS\tTOKENS")
		for _, m := range t.Metrics {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.AgentName,
				(time.Duration(m.DurationMS) * time.Millisecond).String(), dash(m.Status), m.LLMTokensTotal)
		}
	}
	return nil
}

func formatProgress(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", *p)
}

func formatAge(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	d := now.Sub(*t).Truncate(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String() + " ago"
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
