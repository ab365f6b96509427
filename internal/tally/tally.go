// Package tally counts watched videos per day once the history is loaded.
package tally

import (
	"fmt"
	"strings"
	"time"

	"github.com/cantalupo555/nico-history-counter/internal/datefilter"
	"github.com/cantalupo555/nico-history-counter/internal/history"
)

// DateCount is the number of videos watched on one day.
type DateCount struct {
	Date  time.Time
	Label string // M/D
	Count int
}

// Tally is the per-day breakdown in page order (newest first) and its total.
type Tally struct {
	Days  []DateCount
	Total int
}

// Count keeps the chunks dated on or after the target that list at least one
// video. Chunks whose header cannot be resolved are skipped.
func Count(chunks []history.DayChunk, target datefilter.Target, now time.Time) Tally {
	var t Tally
	for _, chunk := range chunks {
		date, ok := datefilter.ParseChunkHeader(chunk.Label, now)
		if !ok || !target.Includes(date) {
			continue
		}
		if chunk.Count <= 0 {
			continue
		}
		t.Days = append(t.Days, DateCount{
			Date:  date,
			Label: datefilter.FormatShort(date),
			Count: chunk.Count,
		})
		t.Total += chunk.Count
	}
	return t
}

// HTML renders the tally the way it is shown in the page overlay.
func (t Tally) HTML() string {
	var b strings.Builder
	b.WriteString("各日付の視聴動画数:<br><br>")
	for _, d := range t.Days {
		fmt.Fprintf(&b, "%s: %d本<br>", d.Label, d.Count)
	}
	fmt.Fprintf(&b, "<br>合計: %d本", t.Total)
	return b.String()
}

// Lines renders one "M/D: N本" line per day followed by the total.
func (t Tally) Lines() []string {
	lines := make([]string, 0, len(t.Days)+1)
	for _, d := range t.Days {
		lines = append(lines, fmt.Sprintf("%s: %d本", d.Label, d.Count))
	}
	return append(lines, fmt.Sprintf("合計: %d本", t.Total))
}
