// Package report provides the final execution report.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cantalupo555/nico-history-counter/internal/datefilter"
	"github.com/cantalupo555/nico-history-counter/internal/scroll"
	"github.com/cantalupo555/nico-history-counter/internal/tally"
)

// maxErrors is how many errors the box lists before summarizing the rest.
const maxErrors = 5

// ErrorEntry represents a single error that occurred during execution.
type ErrorEntry struct {
	Timestamp time.Time
	Stage     string // what was running when the error occurred
	Message   string
}

// Stats holds everything collected during one run.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Target    datefilter.Target
	Result    scroll.Result
	Tally     *tally.Tally
	Errors    []ErrorEntry
}

// New creates a new Stats instance with StartTime set to now.
func New(target datefilter.Target) *Stats {
	return &Stats{
		StartTime: time.Now(),
		Target:    target,
	}
}

// AddError records an error that occurred during processing.
func (s *Stats) AddError(stage string, err error) {
	s.Errors = append(s.Errors, ErrorEntry{
		Timestamp: time.Now(),
		Stage:     stage,
		Message:   err.Error(),
	})
}

// SetResult stores the scroll loop's outcome.
func (s *Stats) SetResult(r scroll.Result) {
	s.Result = r
}

// SetTally stores the per-day counts.
func (s *Stats) SetTally(t tally.Tally) {
	s.Tally = &t
}

// Finish marks the end time of the execution.
func (s *Stats) Finish() {
	if s.EndTime.IsZero() {
		s.EndTime = time.Now()
	}
}

// Duration returns the total execution duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 2)
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Width(18)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Render builds the report box.
func (s *Stats) Render() string {
	rows := []string{
		titleStyle.Render("📊 WATCH HISTORY REPORT"),
		"",
		row("Target", s.Target.String(), lipgloss.NewStyle()),
		row("Duration", formatDuration(s.Duration()), lipgloss.NewStyle()),
		row("Scroll attempts", fmt.Sprintf("%d", s.Result.State.Attempts), lipgloss.NewStyle()),
		row("Outcome", s.Result.Outcome.String(), outcomeStyle(s.Result.Outcome)),
	}
	if !s.Result.Oldest.IsZero() {
		rows = append(rows, row("Oldest loaded", datefilter.FormatLong(s.Result.Oldest), lipgloss.NewStyle()))
	}

	if s.Tally != nil {
		rows = append(rows, "")
		for _, d := range s.Tally.Days {
			rows = append(rows, row(d.Label, fmt.Sprintf("%d本", d.Count), lipgloss.NewStyle()))
		}
		rows = append(rows, row("合計", fmt.Sprintf("%d本", s.Tally.Total), titleStyle))
	}

	rows = append(rows, "")
	if len(s.Errors) == 0 {
		rows = append(rows, goodStyle.Render("✅ No errors occurred"))
	} else {
		rows = append(rows, badStyle.Render(fmt.Sprintf("❌ Errors (%d):", len(s.Errors))))
		for i, e := range s.Errors {
			if i >= maxErrors {
				rows = append(rows, dimStyle.Render(fmt.Sprintf("   ... and %d more errors", len(s.Errors)-maxErrors)))
				break
			}
			text := "   - " + e.Message
			if e.Stage != "" {
				text += fmt.Sprintf(" (%s)", e.Stage)
			}
			rows = append(rows, badStyle.Render(text))
		}
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string, valueStyle lipgloss.Style) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func outcomeStyle(o scroll.Outcome) lipgloss.Style {
	switch o {
	case scroll.TargetReached:
		return goodStyle
	case scroll.Cancelled:
		return warnStyle
	default:
		return badStyle
	}
}

// Print finishes the stats and writes the report box to w.
func (s *Stats) Print(w io.Writer) {
	s.Finish()
	fmt.Fprintln(w)
	fmt.Fprintln(w, s.Render())
	fmt.Fprintln(w)
}

// Summary returns a brief one-line summary of the stats.
func (s *Stats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "target %s, %s after %d attempts", s.Target, s.Result.Outcome, s.Result.State.Attempts)
	if s.Tally != nil {
		fmt.Fprintf(&b, ", %d videos over %d days", s.Tally.Total, len(s.Tally.Days))
	}
	fmt.Fprintf(&b, ", %d errors in %s", len(s.Errors), formatDuration(s.Duration()))
	return b.String()
}
