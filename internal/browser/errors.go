package browser

import (
	"context"
	"errors"
	"strings"
)

// closedPatterns are chromedp/websocket messages seen when the window is closed by hand.
var closedPatterns = []string{
	"websocket: close",
	"target closed",
	"browser: not connected",
	"session closed",
	"page closed",
	"connection refused",
	"broken pipe",
}

// IsBrowserClosed reports whether err means the browser went away, either
// because it was closed or because its context ended.
func IsBrowserClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range closedPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
