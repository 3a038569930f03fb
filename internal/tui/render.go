package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/testops/taskwatch/internal/task"
)

// Shared styles.
var (
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleBold     = lipgloss.NewStyle().Bold(true)
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	styleCursor   = lipgloss.NewStyle().Reverse(true)
	styleSelected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	styleOK       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
)

// StatusColor returns the badge color for a lifecycle state.
func StatusColor(s task.State) lipgloss.Color {
	switch {
	case s == task.StateCompleted:
		return lipgloss.Color("10")
	case s == task.StateFailed:
		return lipgloss.Color("9")
	case s == task.StatePending:
		return lipgloss.Color("8")
	case s.IsActive():
		return lipgloss.Color("11")
	default:
		return lipgloss.Color("7")
	}
}

// StatusBadge renders a lifecycle state as a fixed-width colored label.
func StatusBadge(s task.State) string {
	return lipgloss.NewStyle().
		Foreground(StatusColor(s)).
		Bold(s.IsTerminal()).
		Width(14).
		Render(string(s))
}

// PadOrTruncate pads or truncates a string to exactly width cells.
func PadOrTruncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = Truncate(s, width)
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Truncate truncates a string to max width, adding ellipsis if needed.
// Styled strings are cut without an ellipsis so escape sequences stay intact.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if strings.Contains(s, "\x1b") {
		return lipgloss.NewStyle().MaxWidth(width).Render(s)
	}

	runes := []rune(s)
	if width < 3 {
		return string(runes[:width])
	}
	out := runes[:0:0]
	for _, r := range runes {
		if lipgloss.Width(string(append(out, r)))+3 > width {
			break
		}
		out = append(out, r)
	}
	return string(out) + "..."
}

// ProgressBar renders a bar like "[████░░░░]  50%" in width cells. A nil
// percentage renders as an empty placeholder.
func ProgressBar(pct *int, width int) string {
	if width < 10 {
		return ""
	}
	if pct == nil {
		return PadOrTruncate(styleDim.Render("-"), width)
	}

	p := *pct
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	barWidth := width - 7 // "[" + "]" + " 100%"
	filled := p * barWidth / 100
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
	return fmt.Sprintf("%s %3d%%", bar, p)
}

// FormatDuration renders a duration compactly, e.g. "1m05s" or "850ms".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatAge renders how long ago t was, relative to now.
func FormatAge(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	d := now.Sub(*t)
	if d < 0 {
		d = 0
	}
	return FormatDuration(d.Truncate(time.Second)) + " ago"
}

// Boxed frames lines with a rounded border and a title.
func Boxed(title string, lines []string, width int) []string {
	if width < 6 {
		return lines
	}
	inner := width - 4
	body := make([]string, 0, len(lines)+1)
	if title != "" {
		body = append(body, styleTitle.Render(Truncate(title, inner)))
	}
	for _, l := range lines {
		body = append(body, Truncate(l, inner))
	}
	out := styleBorder.Width(width - 2).Padding(0, 1).Render(strings.Join(body, "\n"))
	return strings.Split(out, "\n")
}
