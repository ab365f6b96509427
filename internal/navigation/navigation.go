// Package navigation handles page scrolling and layout measurements.
package navigation

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

const (
	// HistoryURL is the watch history page the counter runs on.
	HistoryURL = "https://www.nicovideo.jp/my/history"
	// HistoryURLMarker identifies the history page in the current location.
	HistoryURLMarker = "nicovideo.jp/my/history"
)

// ScrollBy scrolls the window down by the given number of pixels.
func ScrollBy(ctx context.Context, pixels float64) error {
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, %f)`, pixels), nil),
	); err != nil {
		return fmt.Errorf("scroll by %.0f failed: %w", pixels, err)
	}
	return nil
}

// ScrollToTop jumps to the top of the document.
func ScrollToTop(ctx context.Context) error {
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
	); err != nil {
		return fmt.Errorf("scroll to top failed: %w", err)
	}
	return nil
}

// ScrollToBottom jumps to the current end of the document, which makes the
// history page request its next batch.
func ScrollToBottom(ctx context.Context) error {
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	); err != nil {
		return fmt.Errorf("scroll to bottom failed: %w", err)
	}
	return nil
}

// DocumentHeight returns the scrollable height of the document.
func DocumentHeight(ctx context.Context) (float64, error) {
	var height float64
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`document.documentElement.scrollHeight`, &height),
	); err != nil {
		return 0, fmt.Errorf("could not read document height: %w", err)
	}
	return height, nil
}

// ViewportHeight returns window.innerHeight.
func ViewportHeight(ctx context.Context) (float64, error) {
	var height float64
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`window.innerHeight`, &height),
	); err != nil {
		return 0, fmt.Errorf("could not read viewport height: %w", err)
	}
	return height, nil
}
