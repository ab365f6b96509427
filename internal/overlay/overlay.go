// Package overlay draws the progress panel on top of the history page and
// turns its stop button into a cancellation.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/cantalupo555/nico-history-counter/internal/datefilter"
	"github.com/cantalupo555/nico-history-counter/internal/scroll"
)

// BindingName is the page function the stop button calls.
const BindingName = "__nicoHistoryStop"

// Messages shown in the panel.
const (
	MsgLoading     = "読み込み中..."
	MsgStalled     = "新しいコンテンツの読み込みが停止しています"
	MsgMaxAttempts = "最大試行回数に到達しました"
	MsgInterrupted = "処理が中断されました"
	MsgError       = "エラーが発生しました。詳細はログを確認してください。"
)

const (
	messageID = "nico-history-message"
	stopID    = "nico-history-stop"
	closeID   = "nico-history-close"
)

var installScript = fmt.Sprintf(`
	(function() {
		for (const id of ['nico-history-overlay', 'nico-history-panel']) {
			const old = document.getElementById(id);
			if (old) old.remove();
		}

		const overlay = document.createElement('div');
		overlay.id = 'nico-history-overlay';
		overlay.style.cssText = 'position:fixed;top:0;left:0;width:100%%;height:100%%;' +
			'background:rgba(128,128,128,0.5);z-index:9999;';

		const panel = document.createElement('div');
		panel.id = 'nico-history-panel';
		panel.style.cssText = 'position:fixed;top:50%%;left:50%%;transform:translate(-50%%,-50%%);' +
			'background:rgba(0,0,0,0.8);color:white;padding:20px;border-radius:10px;z-index:10000;' +
			'font-size:16px;min-width:350px;max-width:500px;max-height:80vh;overflow-y:auto;';

		const message = document.createElement('div');
		message.id = '%s';
		message.style.cssText = 'margin-bottom:15px;line-height:1.5;';

		const stop = document.createElement('button');
		stop.id = '%s';
		stop.textContent = '停止';
		stop.className = 'VideoWatchHistoryControlArea-button';
		stop.addEventListener('click', () => {
			stop.disabled = true;
			window['%s']('stop');
		});

		const close = document.createElement('button');
		close.id = '%s';
		close.textContent = '閉じる';
		close.className = 'VideoWatchHistoryControlArea-button';
		close.style.display = 'none';
		close.addEventListener('click', () => {
			overlay.remove();
			panel.remove();
		});

		panel.appendChild(message);
		panel.appendChild(stop);
		panel.appendChild(close);
		document.body.appendChild(overlay);
		document.body.appendChild(panel);
		return true;
	})()
`, messageID, stopID, BindingName, closeID)

// Overlay is the progress panel of one browser tab. It implements scroll.Observer.
type Overlay struct {
	// ctx is the tab context. Updates use it rather than the loop's context so
	// the panel can still be written after the loop was cancelled.
	ctx context.Context
}

var _ scroll.Observer = (*Overlay)(nil)

// Install registers the stop binding and draws the panel. onStop is called
// (from chromedp's event goroutine) when the user presses the stop button.
func Install(ctx context.Context, onStop func()) (*Overlay, error) {
	if onStop != nil {
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == BindingName {
				zap.S().Info("Stop requested from the page")
				onStop()
			}
		})
	}

	if err := chromedp.Run(ctx,
		runtime.AddBinding(BindingName),
		chromedp.Evaluate(installScript, nil),
	); err != nil {
		return nil, fmt.Errorf("install overlay: %w", err)
	}
	return &Overlay{ctx: ctx}, nil
}

// SetMessage replaces the panel text. html is trusted markup built by this tool.
func (o *Overlay) SetMessage(html string) error {
	literal, err := json.Marshal(html)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`
		(function() {
			const m = document.getElementById('%s');
			if (!m) return false;
			m.innerHTML = %s;
			return true;
		})()
	`, messageID, literal)

	var found bool
	if err := chromedp.Run(o.ctx, chromedp.Evaluate(script, &found)); err != nil {
		return fmt.Errorf("update overlay: %w", err)
	}
	if !found {
		return fmt.Errorf("update overlay: panel was removed")
	}
	return nil
}

// Finish swaps the stop button for the close button.
func (o *Overlay) Finish() error {
	script := fmt.Sprintf(`
		(function() {
			const stop = document.getElementById('%s');
			const close = document.getElementById('%s');
			if (stop) stop.style.display = 'none';
			if (close) close.style.display = 'block';
		})()
	`, stopID, closeID)
	if err := chromedp.Run(o.ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("finish overlay: %w", err)
	}
	return nil
}

// OnProgress shows the attempt count, the target and the oldest loaded day.
func (o *Overlay) OnProgress(_ context.Context, p scroll.Progress) {
	if err := o.SetMessage(ProgressMessage(p)); err != nil {
		zap.S().Debugf("progress not shown: %v", err)
	}
}

// OnStop shows why the loop ended when it was not a success.
func (o *Overlay) OnStop(_ context.Context, r scroll.Result) {
	msg := StopMessage(r.Outcome)
	if msg == "" {
		return
	}
	if err := o.SetMessage(msg); err != nil {
		zap.S().Debugf("stop message not shown: %v", err)
	}
}

// ProgressMessage formats one progress update.
func ProgressMessage(p scroll.Progress) string {
	oldest := MsgLoading
	if !p.Oldest.IsZero() {
		oldest = datefilter.FormatLong(p.Oldest)
	}
	return fmt.Sprintf("スクロール中(%d回目)<br>目標日付: %s<br>現在の表示位置: %s", p.Attempt, p.Target, oldest)
}

// TargetMessage is shown before the loop starts.
func TargetMessage(target datefilter.Target) string {
	return fmt.Sprintf("目標日付: %s", target)
}

// StopMessage returns the panel text for a failed outcome, or "" otherwise.
func StopMessage(outcome scroll.Outcome) string {
	switch outcome {
	case scroll.Stalled:
		return MsgStalled
	case scroll.MaxAttempts:
		return MsgMaxAttempts
	default:
		return ""
	}
}
