package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"rnadiff/internal/results"
)

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	summaryUp    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D1495B"))
	summaryDown  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00798C"))
	summaryMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	summaryBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// SummaryLines renders s as plain text lines in the layout of DESeq2's
// summary(): counts and percentages of up, down and low-count genes.
func SummaryLines(contrast string, s results.Summary) []string {
	pct := func(n int) string {
		if s.Total == 0 {
			return "0%"
		}
		return fmt.Sprintf("%.2g%%", 100*float64(n)/float64(s.Total))
	}
	lines := []string{
		contrast,
		fmt.Sprintf("out of %d with nonzero total read count", s.Total),
		fmt.Sprintf("adjusted p-value < %g", s.Alpha),
		fmt.Sprintf("LFC > 0 (up)       : %d, %s", s.Up, pct(s.Up)),
		fmt.Sprintf("LFC < 0 (down)     : %d, %s", s.Down, pct(s.Down)),
		fmt.Sprintf("untested           : %d, %s", s.Untested, pct(s.Untested)),
		fmt.Sprintf("low counts [1]     : %d, %s", s.LowCount, pct(s.LowCount)),
		fmt.Sprintf("(mean count < %.0f)", s.LowThreshold),
		"[1] see independent filtering",
	}
	return lines
}

// RenderSummary writes the summary block. plain skips styling, for logs and
// non-terminal output.
func RenderSummary(w io.Writer, contrast string, s results.Summary, plain bool) error {
	lines := SummaryLines(contrast, s)
	if plain {
		_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
		return err
	}
	styled := make([]string, len(lines))
	styled[0] = summaryTitle.Render(lines[0])
	copy(styled[1:], lines[1:])
	styled[3] = summaryUp.Render(lines[3])
	styled[4] = summaryDown.Render(lines[4])
	styled[7] = summaryMuted.Render(lines[7])
	styled[8] = summaryMuted.Render(lines[8])
	_, err := fmt.Fprintln(w, summaryBox.Render(lipgloss.JoinVertical(lipgloss.Left, styled...)))
	return err
}
