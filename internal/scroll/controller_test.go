package scroll_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantalupo555/nico-history-counter/internal/datefilter"
	"github.com/cantalupo555/nico-history-counter/internal/history"
	"github.com/cantalupo555/nico-history-counter/internal/scroll"
)

var now = time.Date(2026, time.October, 15, 20, 0, 0, 0, time.UTC)

var target = datefilter.Target{Date: time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC)}

var (
	newer = []history.DayChunk{{Label: "今日", Count: 2}, {Label: "10月11日", Count: 1}}
	older = []history.DayChunk{{Label: "今日", Count: 2}, {Label: "10月11日", Count: 1}, {Label: "10月9日", Count: 4}}
)

// fakePage replays scripted heights and chunk lists, one entry per iteration.
// The last entry repeats once a script runs out.
type fakePage struct {
	heights  []float64
	chunks   [][]history.DayChunk
	viewport float64

	observations int
	scrolls      []float64
	onObserve    func(n int)
	heightErr    error
}

func (f *fakePage) Height(context.Context) (float64, error) {
	if f.heightErr != nil {
		return 0, f.heightErr
	}
	f.observations++
	if f.onObserve != nil {
		f.onObserve(f.observations)
	}
	return pick(f.heights, f.observations-1), nil
}

func (f *fakePage) ViewportHeight(context.Context) (float64, error) {
	return f.viewport, nil
}

func (f *fakePage) DayChunks(context.Context) ([]history.DayChunk, error) {
	if len(f.chunks) == 0 {
		return nil, nil
	}
	i := min(f.observations-1, len(f.chunks)-1)
	return f.chunks[i], nil
}

func (f *fakePage) ScrollBy(_ context.Context, pixels float64) error {
	f.scrolls = append(f.scrolls, pixels)
	return nil
}

func pick(values []float64, i int) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[min(i, len(values)-1)]
}

// growing returns n strictly increasing heights.
func growing(n int) []float64 {
	h := make([]float64, n)
	for i := range h {
		h[i] = float64(1000 + i*500)
	}
	return h
}

type recorder struct {
	progress []scroll.Progress
	stops    []scroll.Result
}

func (r *recorder) OnProgress(_ context.Context, p scroll.Progress) { r.progress = append(r.progress, p) }
func (r *recorder) OnStop(_ context.Context, res scroll.Result)     { r.stops = append(r.stops, res) }

func testOptions(waits *[]time.Duration) scroll.Options {
	opts := scroll.DefaultOptions()
	opts.Now = func() time.Time { return now }
	opts.Wait = func(_ context.Context, d time.Duration) {
		if waits != nil {
			*waits = append(*waits, d)
		}
	}
	return opts
}

func TestRun_StallsOnUnchangedHeight(t *testing.T) {
	page := &fakePage{heights: []float64{100}, chunks: [][]history.DayChunk{newer}, viewport: 1000}
	rec := &recorder{}

	res, err := scroll.New(page, target, rec, testOptions(nil)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scroll.Stalled, res.Outcome)
	assert.False(t, res.Success())
	assert.Equal(t, 15, res.State.SameHeight)
	// The first observation records the height; fifteen more unchanged ones stall.
	assert.Equal(t, 15, res.State.Attempts)
	assert.Equal(t, 16, page.observations)
	require.Len(t, rec.stops, 1)
	assert.Equal(t, scroll.Stalled, rec.stops[0].Outcome)
}

func TestRun_TargetReachedOnThirdConsecutiveObservation(t *testing.T) {
	page := &fakePage{heights: growing(10), chunks: [][]history.DayChunk{older}, viewport: 1000}

	res, err := scroll.New(page, target, nil, testOptions(nil)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scroll.TargetReached, res.Outcome)
	assert.True(t, res.Success())
	assert.Equal(t, 3, page.observations)
	assert.Equal(t, 3, res.State.TargetStreak)
	assert.Len(t, page.scrolls, 2)
	assert.True(t, time.Date(2026, time.October, 9, 0, 0, 0, 0, time.UTC).Equal(res.Oldest))
}

func TestRun_TargetStreakResetsOnNewerObservation(t *testing.T) {
	page := &fakePage{
		heights:  growing(20),
		chunks:   [][]history.DayChunk{older, older, newer, older, older, older},
		viewport: 1000,
	}
	rec := &recorder{}

	res, err := scroll.New(page, target, rec, testOptions(nil)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scroll.TargetReached, res.Outcome)
	assert.Equal(t, 6, page.observations, "two hits then a miss must not terminate")
	assert.Equal(t, 5, res.State.Attempts)
	assert.Len(t, rec.progress, 6)
}

func TestRun_TargetDayItselfIsNotOlder(t *testing.T) {
	onTarget := []history.DayChunk{{Label: "10月10日", Count: 1}}
	page := &fakePage{heights: []float64{500}, chunks: [][]history.DayChunk{onTarget}, viewport: 1000}

	res, err := scroll.New(page, target, nil, testOptions(nil)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scroll.Stalled, res.Outcome)
	assert.Zero(t, res.State.TargetStreak)
}

func TestRun_MaxAttempts(t *testing.T) {
	opts := testOptions(nil)
	opts.MaxAttempts = 10
	page := &fakePage{heights: growing(100), chunks: [][]history.DayChunk{newer}, viewport: 1000}

	res, err := scroll.New(page, target, nil, opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scroll.MaxAttempts, res.Outcome)
	assert.Equal(t, 10, res.State.Attempts)
	assert.Len(t, page.scrolls, 10)
}

func TestRun_CancelTakesEffectAtNextBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := &fakePage{heights: growing(100), chunks: [][]history.DayChunk{newer}, viewport: 1000}
	page.onObserve = func(n int) {
		if n == 4 {
			cancel()
		}
	}
	rec := &recorder{}

	res, err := scroll.New(page, target, rec, testOptions(nil)).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, scroll.Cancelled, res.Outcome)
	assert.False(t, res.Success())
	assert.Equal(t, 4, page.observations)
	assert.Equal(t, 4, res.State.Attempts, "iteration 4 completes before the boundary check")
	require.Len(t, rec.stops, 1)
	assert.Equal(t, scroll.Cancelled, rec.stops[0].Outcome)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &fakePage{heights: []float64{100}}
	res, err := scroll.New(page, target, nil, testOptions(nil)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, scroll.Cancelled, res.Outcome)
	assert.Zero(t, page.observations)
}

func TestRun_CancelDuringSettleDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := testOptions(nil)
	opts.Wait = func(_ context.Context, d time.Duration) {
		if d == opts.SettleDelay {
			cancel()
		}
	}
	page := &fakePage{heights: growing(10), chunks: [][]history.DayChunk{older}, viewport: 1000}

	res, err := scroll.New(page, target, nil, opts).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, scroll.Cancelled, res.Outcome)
}

func TestRun_WaitBacksOffWhileHeightIsUnchanged(t *testing.T) {
	var waits []time.Duration
	opts := testOptions(&waits)
	page := &fakePage{heights: []float64{100}, chunks: [][]history.DayChunk{newer}, viewport: 1000}

	res, err := scroll.New(page, target, nil, opts).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scroll.Stalled, res.Outcome)

	// 15 inter-iteration waits followed by the failure delay.
	require.Len(t, waits, 16)
	for i := 0; i < 6; i++ {
		assert.Equal(t, opts.WaitNormal, waits[i], "wait %d", i)
	}
	for i := 6; i < 15; i++ {
		assert.Equal(t, opts.WaitSlow, waits[i], "wait %d", i)
	}
	assert.Equal(t, opts.FailureDelay, waits[15])
}

func TestRun_ScrollAmountFollowsViewport(t *testing.T) {
	opts := testOptions(nil)
	opts.MaxAttempts = 1

	small := &fakePage{heights: growing(5), viewport: 600}
	_, err := scroll.New(small, target, nil, opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{800}, small.scrolls)

	tall := &fakePage{heights: growing(5), viewport: 1500}
	_, err = scroll.New(tall, target, nil, opts).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, tall.scrolls, 1)
	assert.InDelta(t, 1200, tall.scrolls[0], 1e-9)
}

func TestRun_ProgressWithoutRecognizableDate(t *testing.T) {
	opts := testOptions(nil)
	opts.MaxAttempts = 2
	page := &fakePage{
		heights:  growing(5),
		chunks:   [][]history.DayChunk{{{Label: "読み込み中", Count: 0}}},
		viewport: 1000,
	}
	rec := &recorder{}

	_, err := scroll.New(page, target, rec, opts).Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, rec.progress)
	for i, p := range rec.progress {
		assert.True(t, p.Oldest.IsZero())
		assert.Equal(t, i, p.Attempt)
		assert.Equal(t, target, p.Target)
	}
}

func TestRun_PageErrorIsReturned(t *testing.T) {
	boom := errors.New("target closed")
	page := &fakePage{heightErr: boom}

	res, err := scroll.New(page, target, nil, testOptions(nil)).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, scroll.Running, res.Outcome)
}

func TestOldestDate(t *testing.T) {
	chunks := []history.DayChunk{
		{Label: "今日"},
		{Label: "???"},
		{Label: "10月2日"},
		{Label: "10月5日"},
	}
	got, ok := scroll.OldestDate(chunks, now)
	require.True(t, ok)
	assert.True(t, time.Date(2026, time.October, 2, 0, 0, 0, 0, time.UTC).Equal(got))

	_, ok = scroll.OldestDate([]history.DayChunk{{Label: "???"}}, now)
	assert.False(t, ok)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "stalled", scroll.Stalled.String())
	assert.Equal(t, "target reached", scroll.TargetReached.String())
	assert.Equal(t, "outcome(42)", scroll.Outcome(42).String())
}
