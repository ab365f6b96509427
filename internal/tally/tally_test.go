package tally_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantalupo555/nico-history-counter/internal/datefilter"
	"github.com/cantalupo555/nico-history-counter/internal/history"
	"github.com/cantalupo555/nico-history-counter/internal/tally"
)

var now = time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC)

func TestCount_SkipsEmptyDays(t *testing.T) {
	chunks := []history.DayChunk{
		{Label: "今日", Count: 3},
		{Label: "昨日", Count: 0},
		{Label: "10月13日", Count: 5},
	}
	target, err := datefilter.ParseTarget("10/13", now)
	require.NoError(t, err)

	got := tally.Count(chunks, target, now)

	require.Len(t, got.Days, 2)
	assert.Equal(t, "10/15", got.Days[0].Label)
	assert.Equal(t, 3, got.Days[0].Count)
	assert.Equal(t, "10/13", got.Days[1].Label)
	assert.Equal(t, 5, got.Days[1].Count)
	assert.Equal(t, 8, got.Total)
}

func TestCount_ExcludesDaysBeforeTargetAndUnknownHeaders(t *testing.T) {
	chunks := []history.DayChunk{
		{Label: "今日", Count: 1},
		{Label: "もっと見る", Count: 7},
		{Label: "10月10日", Count: 2},
		{Label: "10月9日", Count: 4},
	}
	target := datefilter.Target{Date: time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC)}

	got := tally.Count(chunks, target, now)

	assert.Equal(t, []string{"10/15", "10/10"}, labels(got))
	assert.Equal(t, 3, got.Total)
}

func TestCount_Empty(t *testing.T) {
	got := tally.Count(nil, datefilter.Target{Date: now}, now)
	assert.Empty(t, got.Days)
	assert.Zero(t, got.Total)
	assert.Equal(t, "各日付の視聴動画数:<br><br><br>合計: 0本", got.HTML())
}

func TestTally_HTML(t *testing.T) {
	got := tally.Tally{
		Days:  []tally.DateCount{{Label: "10/15", Count: 3}, {Label: "10/13", Count: 5}},
		Total: 8,
	}
	assert.Equal(t, "各日付の視聴動画数:<br><br>10/15: 3本<br>10/13: 5本<br><br>合計: 8本", got.HTML())
	assert.Equal(t, []string{"10/15: 3本", "10/13: 5本", "合計: 8本"}, got.Lines())
}

func labels(t tally.Tally) []string {
	out := make([]string, 0, len(t.Days))
	for _, d := range t.Days {
		out = append(out, d.Label)
	}
	return out
}
