// Package auth checks that the browser session is logged into niconico.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/cantalupo555/nico-history-counter/internal/history"
)

const (
	// LoginCheckInterval is how often to check login status when waiting.
	LoginCheckInterval = 5 * time.Second
	// LoginTimeout is the maximum time to wait for user login.
	LoginTimeout = 5 * time.Minute
)

// loginURLMarkers appear in the location while niconico asks for credentials.
var loginURLMarkers = []string{
	"account.nicovideo.jp",
	"/login",
	"/signup",
}

// IsLoginURL reports whether url is one of niconico's login pages.
func IsLoginURL(url string) bool {
	url = strings.ToLower(url)
	for _, marker := range loginURLMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

// pageStateScript reports which kind of page is rendered.
var pageStateScript = fmt.Sprintf(`
	(function() {
		if (document.querySelector('%s') || document.querySelector('%s')) return 'history';
		if (document.querySelector('input[name="mail_tel"]') ||
			document.querySelector('input[type="password"]') ||
			document.querySelector('form[action*="login"]')) return 'login';
		return 'unknown';
	})()
`, history.ChunkSelector, history.ContainerSelector)

// CheckLoginStatus verifies the user is logged in. It returns true only once
// the history page itself is rendered.
func CheckLoginStatus(ctx context.Context) (bool, error) {
	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return false, fmt.Errorf("could not get current URL: %w", err)
	}
	if IsLoginURL(url) {
		zap.S().Infof("Login page detected (URL: %s)", url)
		return false, nil
	}

	var state string
	if err := chromedp.Run(ctx, chromedp.Evaluate(pageStateScript, &state)); err != nil {
		return false, fmt.Errorf("could not check page state: %w", err)
	}

	switch state {
	case "history":
		return true, nil
	case "login":
		zap.S().Info("Login form detected in DOM")
		return false, nil
	default:
		zap.S().Warn("⚠️ Could not confirm login status, page may still be loading...")
		return false, nil
	}
}

// WaitForLogin waits for the user to log in within LoginTimeout, reopening
// historyURL each time a check passes the login page.
func WaitForLogin(ctx context.Context, historyURL string) error {
	log := zap.S()
	log.Warn("⚠️  User is NOT logged in!")
	log.Warn("⚠️  Please log in to your niconico account in the browser window.")
	log.Infof("Waiting for login (checking every %v, max %v)...", LoginCheckInterval, LoginTimeout)

	loginTimeout := time.NewTimer(LoginTimeout)
	defer loginTimeout.Stop()
	loginCheck := time.NewTicker(LoginCheckInterval)
	defer loginCheck.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-loginTimeout.C:
			return fmt.Errorf("login timeout: user did not log in within %v", LoginTimeout)
		case <-loginCheck.C:
			var url string
			if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
				log.Warnf("Warning: login check failed: %v", err)
				continue
			}
			if IsLoginURL(url) {
				log.Info("Still waiting for login...")
				continue
			}
			// niconico sends the user to the top page after login, not back to the history.
			if !strings.Contains(url, "/my/history") {
				if err := chromedp.Run(ctx, chromedp.Navigate(historyURL)); err != nil {
					log.Warnf("Warning: could not reopen history: %v", err)
					continue
				}
			}
			isLoggedIn, err := CheckLoginStatus(ctx)
			if err != nil {
				log.Warnf("Warning: login check failed: %v", err)
				continue
			}
			if isLoggedIn {
				log.Info("✓ Login detected!")
				return nil
			}
			log.Info("Still waiting for login...")
		}
	}
}
