package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/testops/taskwatch/internal/task"
)

func TestPadOrTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		s     string
		width int
		want  string
	}{
		{"exact", "abcde", 5, "abcde"},
		{"pad", "ab", 5, "ab   "},
		{"truncate", "abcdefghij", 7, "abcd..."},
		{"tiny width", "abcdef", 2, "ab"},
		{"zero width", "abc", 0, ""},
		{"unicode", "日本", 6, "日本  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := PadOrTruncate(tt.s, tt.width)
			assert.Equal(t, tt.want, got)
			if tt.width > 0 {
				assert.Equal(t, tt.width, lipgloss.Width(got))
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		s     string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"cut", "hello world", 8, "hello..."},
		{"wide runes", "日本語テキスト", 7, "日本..."},
		{"negative", "hello", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Truncate(tt.s, tt.width))
		})
	}
}

func TestTruncate_Styled(t *testing.T) {
	t.Parallel()

	styled := "\x1b[1m" + strings.Repeat("x", 30) + "\x1b[0m"
	got := Truncate(styled, 10)
	assert.LessOrEqual(t, lipgloss.Width(got), 10)
}

func TestProgressBar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		pct   *int
		width int
		want  string
	}{
		{"empty", task.IntPtr(0), 17, "[░░░░░░░░░░]   0%"},
		{"half", task.IntPtr(50), 17, "[█████░░░░░]  50%"},
		{"full", task.IntPtr(100), 17, "[██████████] 100%"},
		{"clamped high", task.IntPtr(250), 17, "[██████████] 100%"},
		{"clamped low", task.IntPtr(-5), 17, "[░░░░░░░░░░]   0%"},
		{"too narrow", task.IntPtr(50), 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ProgressBar(tt.pct, tt.width))
		})
	}

	t.Run("unknown progress", func(t *testing.T) {
		t.Parallel()
		got := ProgressBar(nil, 17)
		assert.Equal(t, 17, lipgloss.Width(got))
		assert.Contains(t, got, "-")
	})
}

func TestStatusBadge(t *testing.T) {
	t.Parallel()

	for _, s := range task.AllStates {
		badge := StatusBadge(s)
		assert.Contains(t, badge, string(s))
		assert.Equal(t, 14, lipgloss.Width(badge), "badge for %s", s)
	}

	assert.NotEqual(t, StatusColor(task.StateCompleted), StatusColor(task.StateFailed))
	assert.Equal(t, StatusColor(task.StateGeneration), StatusColor(task.StateValidation))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{850 * time.Millisecond, "850ms"},
		{1500 * time.Millisecond, "1.5s"},
		{65 * time.Second, "1m05s"},
		{2*time.Hour + 3*time.Minute, "2h03m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestFormatAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-90 * time.Second)

	assert.Equal(t, "1m30s ago", FormatAge(&started, now))
	assert.Equal(t, "-", FormatAge(nil, now))

	future := now.Add(time.Minute)
	assert.Equal(t, "0ms ago", FormatAge(&future, now))
}

func TestBoxed(t *testing.T) {
	t.Parallel()

	lines := Boxed("title", []string{"body line", strings.Repeat("y", 100)}, 40)
	assert.Len(t, lines, 5, "two border rows, title and two body rows")
	for _, l := range lines {
		assert.Equal(t, 40, lipgloss.Width(l))
	}
	assert.Contains(t, lines[1], "title")
	assert.Contains(t, lines[2], "body line")
}
