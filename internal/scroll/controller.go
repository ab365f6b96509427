// Package scroll drives the history page's infinite scroll until the target
// date has been loaded, the page stops growing, or the run is cancelled.
package scroll

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cantalupo555/nico-history-counter/internal/datefilter"
	"github.com/cantalupo555/nico-history-counter/internal/history"
)

// Page is the part of the history page the controller reads and scrolls.
type Page interface {
	Height(ctx context.Context) (float64, error)
	ViewportHeight(ctx context.Context) (float64, error)
	DayChunks(ctx context.Context) ([]history.DayChunk, error)
	ScrollBy(ctx context.Context, pixels float64) error
}

// Observer receives progress from the loop. Both calls are for display only.
type Observer interface {
	OnProgress(ctx context.Context, p Progress)
	OnStop(ctx context.Context, r Result)
}

// Outcome is the state of the loop.
type Outcome int

const (
	Running Outcome = iota
	TargetReached
	Stalled
	MaxAttempts
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case TargetReached:
		return "target reached"
	case Stalled:
		return "stalled"
	case MaxAttempts:
		return "max attempts"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is the loop's mutable bookkeeping.
type State struct {
	Attempts     int
	LastHeight   float64
	SameHeight   int
	TargetStreak int
}

// Progress is reported once per iteration, before any decision is taken.
type Progress struct {
	Attempt int
	Target  datefilter.Target
	Oldest  time.Time // zero while no chunk has a recognizable header
	Height  float64
}

// Result is the terminal outcome together with the final state.
type Result struct {
	Outcome Outcome
	State   State
	Oldest  time.Time
}

// Success reports whether the target date was reached.
func (r Result) Success() bool {
	return r.Outcome == TargetReached
}

// Options tunes the loop. Zero fields take the defaults from DefaultOptions.
type Options struct {
	MaxAttempts          int
	ScrollAmount         float64
	ScrollMultiplier     float64
	WaitNormal           time.Duration
	WaitSlow             time.Duration
	SameHeightLimit      int
	SlowThreshold        int
	TargetStreakRequired int
	SettleDelay          time.Duration
	FailureDelay         time.Duration

	// Now and Wait replace the clock in tests.
	Now  func() time.Time
	Wait func(ctx context.Context, d time.Duration)
}

// DefaultOptions returns the tuning used against the live site.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:          5000,
		ScrollAmount:         800,
		ScrollMultiplier:     0.8,
		WaitNormal:           400 * time.Millisecond,
		WaitSlow:             800 * time.Millisecond,
		SameHeightLimit:      15,
		SlowThreshold:        5,
		TargetStreakRequired: 3,
		SettleDelay:          500 * time.Millisecond,
		FailureDelay:         time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.ScrollAmount <= 0 {
		o.ScrollAmount = d.ScrollAmount
	}
	if o.ScrollMultiplier <= 0 {
		o.ScrollMultiplier = d.ScrollMultiplier
	}
	if o.WaitNormal <= 0 {
		o.WaitNormal = d.WaitNormal
	}
	if o.WaitSlow <= 0 {
		o.WaitSlow = d.WaitSlow
	}
	if o.SameHeightLimit <= 0 {
		o.SameHeightLimit = d.SameHeightLimit
	}
	if o.SlowThreshold <= 0 {
		o.SlowThreshold = d.SlowThreshold
	}
	if o.TargetStreakRequired <= 0 {
		o.TargetStreakRequired = d.TargetStreakRequired
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.FailureDelay < 0 {
		o.FailureDelay = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Wait == nil {
		o.Wait = sleep
	}
	return o
}

// Controller runs the scroll loop for one target date.
type Controller struct {
	page     Page
	target   datefilter.Target
	observer Observer
	opts     Options
	log      *zap.SugaredLogger
}

// New creates a Controller. observer may be nil.
func New(page Page, target datefilter.Target, observer Observer, opts Options) *Controller {
	return &Controller{
		page:     page,
		target:   target,
		observer: observer,
		opts:     opts.withDefaults(),
		log:      zap.S().Named("scroll"),
	}
}

// Run scrolls until one of the terminal outcomes. Cancelling ctx is not an
// error: it ends the loop at the next iteration boundary with Cancelled.
// A non-nil error means the page could not be read or scrolled.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	var (
		st     State
		oldest time.Time
	)

	for {
		if ctx.Err() != nil {
			return c.stop(ctx, Cancelled, st, oldest), nil
		}

		seen, height, err := c.observe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.stop(ctx, Cancelled, st, oldest), nil
			}
			return Result{Outcome: Running, State: st, Oldest: oldest}, fmt.Errorf("observe page: %w", err)
		}
		oldest = seen

		if c.observer != nil {
			c.observer.OnProgress(ctx, Progress{
				Attempt: st.Attempts,
				Target:  c.target,
				Oldest:  oldest,
				Height:  height,
			})
		}

		if !oldest.IsZero() && c.target.IsBefore(oldest) {
			st.TargetStreak++
			if st.TargetStreak >= c.opts.TargetStreakRequired {
				return c.finishReached(ctx, st, oldest), nil
			}
		} else {
			st.TargetStreak = 0
		}

		if height == st.LastHeight {
			st.SameHeight++
		} else {
			st.SameHeight = 0
			st.LastHeight = height
		}

		if st.Attempts >= c.opts.MaxAttempts {
			return c.finishFailed(ctx, MaxAttempts, st, oldest), nil
		}
		if st.SameHeight >= c.opts.SameHeightLimit {
			return c.finishFailed(ctx, Stalled, st, oldest), nil
		}

		if err := c.scroll(ctx); err != nil {
			if ctx.Err() != nil {
				return c.stop(ctx, Cancelled, st, oldest), nil
			}
			return Result{Outcome: Running, State: st, Oldest: oldest}, fmt.Errorf("scroll page: %w", err)
		}
		st.Attempts++

		c.opts.Wait(ctx, c.nextWait(st))
	}
}

// observe reads the document height and the oldest rendered date.
func (c *Controller) observe(ctx context.Context) (time.Time, float64, error) {
	height, err := c.page.Height(ctx)
	if err != nil {
		return time.Time{}, 0, err
	}
	chunks, err := c.page.DayChunks(ctx)
	if err != nil {
		return time.Time{}, 0, err
	}
	oldest, _ := OldestDate(chunks, c.opts.Now())
	return oldest, height, nil
}

func (c *Controller) scroll(ctx context.Context) error {
	viewport, err := c.page.ViewportHeight(ctx)
	if err != nil {
		return err
	}
	return c.page.ScrollBy(ctx, ScrollAmount(c.opts.ScrollAmount, viewport, c.opts.ScrollMultiplier))
}

// nextWait backs off while the page keeps reporting the same height.
func (c *Controller) nextWait(st State) time.Duration {
	if st.SameHeight > c.opts.SlowThreshold {
		return c.opts.WaitSlow
	}
	return c.opts.WaitNormal
}

// finishReached lets the last chunks render before resolving. A stop request
// during that delay still wins.
func (c *Controller) finishReached(ctx context.Context, st State, oldest time.Time) Result {
	c.opts.Wait(ctx, c.opts.SettleDelay)
	if ctx.Err() != nil {
		return c.stop(ctx, Cancelled, st, oldest)
	}
	return c.stop(ctx, TargetReached, st, oldest)
}

// finishFailed keeps the failure message on screen for a moment.
func (c *Controller) finishFailed(ctx context.Context, outcome Outcome, st State, oldest time.Time) Result {
	res := c.stop(ctx, outcome, st, oldest)
	c.opts.Wait(ctx, c.opts.FailureDelay)
	return res
}

func (c *Controller) stop(ctx context.Context, outcome Outcome, st State, oldest time.Time) Result {
	res := Result{Outcome: outcome, State: st, Oldest: oldest}
	c.log.Infow("scroll loop finished",
		"outcome", outcome.String(),
		"attempts", st.Attempts,
		"same_height", st.SameHeight,
		"target", c.target.String(),
	)
	if c.observer != nil {
		c.observer.OnStop(ctx, res)
	}
	return res
}

// OldestDate returns the earliest recognizable chunk date, or false when no
// header can be resolved yet.
func OldestDate(chunks []history.DayChunk, now time.Time) (time.Time, bool) {
	var oldest time.Time
	found := false
	for _, chunk := range chunks {
		date, ok := datefilter.ParseChunkHeader(chunk.Label, now)
		if !ok {
			continue
		}
		if !found || date.Before(oldest) {
			oldest = date
			found = true
		}
	}
	return oldest, found
}

// ScrollAmount is max(base, viewport*multiplier).
func ScrollAmount(base, viewport, multiplier float64) float64 {
	return max(base, viewport*multiplier)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
