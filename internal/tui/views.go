package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/testops/taskwatch/internal/monitor"
	"github.com/testops/taskwatch/internal/stream"
	"github.com/testops/taskwatch/internal/task"
)

// ListView renders the task directory with the cursor and selection marks.
type ListView struct{}

// Render renders at most height lines. The window scrolls to keep the
// cursor row visible.
func (v *ListView) Render(snap monitor.Snapshot, cursor, width, height int, now time.Time) []string {
	if width < 20 {
		width = 20
	}
	if height < 2 {
		height = 2
	}

	polled := "never"
	if !snap.LastPoll.IsZero() {
		polled = FormatAge(&snap.LastPoll, now)
	}
	header := fmt.Sprintf("tasks (%d) | filter: %s | polled %s", len(snap.Tasks), snap.Filter, polled)
	lines := []string{styleTitle.Render(Truncate(header, width))}

	if len(snap.Tasks) == 0 {
		return append(lines, styleDim.Render("no tasks"))
	}

	rows := height - 1
	start := 0
	if cursor >= rows {
		start = cursor - rows + 1
	}
	end := start + rows
	if end > len(snap.Tasks) {
		end = len(snap.Tasks)
	}

	for i := start; i < end; i++ {
		lines = append(lines, v.row(snap.Tasks[i], i == cursor, snap.Tasks[i].RequestID == snap.SelectedID, width, now))
	}
	return lines
}

func (v *ListView) row(t task.Task, atCursor, selected bool, width int, now time.Time) string {
	mark := "  "
	if selected {
		mark = styleSelected.Render("● ")
	}

	barWidth := 24
	stepWidth := width - 2 - 10 - 14 - barWidth - 14
	line := mark +
		PadOrTruncate(t.ShortID(), 9) + " " +
		StatusBadge(t.Status) +
		ProgressBar(t.Progress, barWidth) + " " +
		PadOrTruncate(t.CurrentStep, max(0, stepWidth)) + " " +
		FormatAge(t.StartedAt, now)

	line = PadOrTruncate(line, width)
	if atCursor {
		return styleCursor.Render(line)
	}
	return line
}

// DetailView renders the selected task with its tests and metrics.
type DetailView struct{}

// Render renders the detail pane. Without a selection it shows a hint.
func (v *DetailView) Render(snap monitor.Snapshot, width int, now time.Time) []string {
	if width < 20 {
		width = 20
	}
	t := snap.Selected
	if t == nil {
		return Boxed("", []string{styleDim.Render("no task selected, press enter on a task to open it")}, width)
	}

	conn := styleDim.Render("offline")
	if snap.Connected {
		conn = styleOK.Render("live")
	}

	lines := []string{
		fmt.Sprintf("status:   %s %s", StatusBadge(t.Status), conn),
		"progress: " + ProgressBar(t.Progress, min(40, width-14)),
	}
	if t.CurrentStep != "" {
		lines = append(lines, "step:     "+t.CurrentStep)
	}
	lines = append(lines, fmt.Sprintf("started:  %s", FormatAge(t.StartedAt, now)))
	if t.CompletedAt != nil {
		lines = append(lines, fmt.Sprintf("finished: %s", FormatAge(t.CompletedAt, now)))
	}
	if t.RetryCount > 0 {
		lines = append(lines, fmt.Sprintf("retries:  %d", t.RetryCount))
	}
	if t.ErrorMessage != "" {
		lines = append(lines, styleWarn.Render("error:    "+t.ErrorMessage))
	}
	if rs := t.ResultSummary; rs != nil {
		lines = append(lines, fmt.Sprintf("result:   %d generated, %d validated, %d optimized",
			rs.TestsGenerated, rs.TestsValidated, rs.TestsOptimized))
	}
	if ev := snap.LatestEvent; ev != nil {
		lines = append(lines, styleDim.Render("event:    "+describeEvent(ev)))
	}

	lines = append(lines, "")
	lines = append(lines, v.tests(t.Tests, width-4)...)
	lines = append(lines, "")
	lines = append(lines, v.metrics(t.Metrics)...)

	return Boxed("task "+t.RequestID, lines, width)
}

func (v *DetailView) tests(tests []task.TestCase, width int) []string {
	if len(tests) == 0 {
		return []string{styleDim.Render("tests: none yet")}
	}
	nameWidth := max(10, width-40)
	lines := []string{
		styleBold.Render(fmt.Sprintf("tests (%d)", len(tests))),
		styleDim.Render(PadOrTruncate("name", nameWidth) + " " + PadOrTruncate("type", 12) + " " + PadOrTruncate("prio", 5) + " validation"),
	}
	for _, tc := range tests {
		lines = append(lines, PadOrTruncate(tc.Name, nameWidth)+" "+
			PadOrTruncate(tc.Type, 12)+" "+
			PadOrTruncate(fmt.Sprint(tc.Priority), 5)+" "+
			tc.ValidationStatus)
	}
	return lines
}

func (v *DetailView) metrics(metrics []task.AgentMetric) []string {
	if len(metrics) == 0 {
		return []string{styleDim.Render("metrics: none yet")}
	}
	lines := []string{
		styleBold.Render("agents"),
		styleDim.Render(PadOrTruncate("agent", 20) + " " + PadOrTruncate("duration", 10) + " " + PadOrTruncate("status", 10) + " tokens"),
	}
	for _, m := range metrics {
		lines = append(lines, PadOrTruncate(m.AgentName, 20)+" "+
			PadOrTruncate(FormatDuration(time.Duration(m.DurationMS)*time.Millisecond), 10)+" "+
			PadOrTruncate(m.Status, 10)+" "+
			fmt.Sprint(m.LLMTokensTotal))
	}
	return lines
}

func describeEvent(ev *stream.Event) string {
	switch ev.Kind {
	case stream.KindFailed:
		return "failed: " + ev.Message
	case stream.KindCompleted:
		return "completed"
	}
	if p, err := ev.Progress(); err == nil && p != nil {
		parts := []string{"progress"}
		if p.Step != "" {
			parts = append(parts, p.Step)
		}
		if p.Progress != nil {
			parts = append(parts, fmt.Sprintf("%d%%", *p.Progress))
		}
		return strings.Join(parts, " ")
	}
	return string(ev.Kind)
}

// NoticeBar renders the dismissible notice line, or nothing.
func NoticeBar(n *monitor.Notice, width int) []string {
	if n == nil {
		return nil
	}
	text := fmt.Sprintf(" %s: %s", n.Kind, n.Message)
	if n.TaskID != "" {
		text = fmt.Sprintf(" %s (%s): %s", n.Kind, n.TaskID, n.Message)
	}
	hint := "  [x] dismiss "
	return []string{styleError.Render(PadOrTruncate(text, max(0, width-len(hint))) + hint)}
}

// HelpLine lists the key bindings.
func HelpLine(full bool, width int) string {
	text := "↑/↓ move  enter open  esc close  r resume  f filter  x dismiss  q quit  ? help"
	if full {
		text = "↑/k ↓/j move cursor | g/G top/bottom | enter open task | esc close task | " +
			"r resume failed task | f cycle filter | R refresh now | x dismiss notice | q quit"
	}
	return styleDim.Render(Truncate(text, width))
}
