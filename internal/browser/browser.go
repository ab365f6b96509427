// Package browser provides Chrome/Chromedp initialization and configuration.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config holds browser configuration options.
type Config struct {
	ExecPath     string
	ProfilePath  string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	Timeout      time.Duration
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() Config {
	return Config{
		ExecPath:     "chromium",
		WindowWidth:  1280,
		WindowHeight: 900,
		Timeout:      time.Hour,
	}
}

// Context holds the browser contexts and cancel functions.
type Context struct {
	Ctx         context.Context
	AllocCancel context.CancelFunc
	CtxCancel   context.CancelFunc
}

// New starts a browser under parent. Cancelling parent tears the browser down.
func New(parent context.Context, cfg Config) (*Context, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(cfg.ExecPath),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.ProfilePath != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.ProfilePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)

	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(zap.S().Named("chromedp").Infof))

	// Start the browser now so a bad executable fails here, not on first use.
	if err := chromedp.Run(ctx); err != nil {
		ctxCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser %s: %w", cfg.ExecPath, err)
	}

	ctx, timeoutCancel := context.WithTimeout(ctx, cfg.Timeout)

	// Wrap both cancels
	combinedCancel := func() {
		timeoutCancel()
		ctxCancel()
	}

	return &Context{
		Ctx:         ctx,
		AllocCancel: allocCancel,
		CtxCancel:   combinedCancel,
	}, nil
}

// Close closes all browser contexts.
func (c *Context) Close() {
	if c.CtxCancel != nil {
		c.CtxCancel()
	}
	if c.AllocCancel != nil {
		c.AllocCancel()
	}
}

// Navigate opens url and waits for the body to be ready.
func Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// GetCurrentURL returns the current page URL.
func GetCurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}
