package overlay_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cantalupo555/nico-history-counter/internal/datefilter"
	"github.com/cantalupo555/nico-history-counter/internal/overlay"
	"github.com/cantalupo555/nico-history-counter/internal/scroll"
)

var target = datefilter.Target{Date: time.Date(2026, time.October, 1, 0, 0, 0, 0, time.Local)}

func TestProgressMessage(t *testing.T) {
	loading := overlay.ProgressMessage(scroll.Progress{Attempt: 0, Target: target})
	assert.Equal(t, "スクロール中(0回目)<br>目標日付: 2026/10/1<br>現在の表示位置: 読み込み中...", loading)

	got := overlay.ProgressMessage(scroll.Progress{
		Attempt: 12,
		Target:  target,
		Oldest:  time.Date(2026, time.October, 7, 0, 0, 0, 0, time.Local),
	})
	assert.Equal(t, "スクロール中(12回目)<br>目標日付: 2026/10/1<br>現在の表示位置: 2026/10/7", got)
}

func TestStopMessage(t *testing.T) {
	assert.Equal(t, overlay.MsgStalled, overlay.StopMessage(scroll.Stalled))
	assert.Equal(t, overlay.MsgMaxAttempts, overlay.StopMessage(scroll.MaxAttempts))
	assert.Empty(t, overlay.StopMessage(scroll.TargetReached))
	assert.Empty(t, overlay.StopMessage(scroll.Cancelled))
}

func TestTargetMessage(t *testing.T) {
	assert.Equal(t, "目標日付: 2026/10/1", overlay.TargetMessage(target))
}
