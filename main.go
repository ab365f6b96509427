package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cantalupo555/nico-history-counter/internal/auth"
	"github.com/cantalupo555/nico-history-counter/internal/browser"
	"github.com/cantalupo555/nico-history-counter/internal/config"
	"github.com/cantalupo555/nico-history-counter/internal/datefilter"
	"github.com/cantalupo555/nico-history-counter/internal/history"
	"github.com/cantalupo555/nico-history-counter/internal/logging"
	"github.com/cantalupo555/nico-history-counter/internal/navigation"
	"github.com/cantalupo555/nico-history-counter/internal/overlay"
	"github.com/cantalupo555/nico-history-counter/internal/report"
	"github.com/cantalupo555/nico-history-counter/internal/scroll"
	"github.com/cantalupo555/nico-history-counter/internal/tally"
)

// appVersion is set at build time via -ldflags="-X main.appVersion=x.x.x"
var appVersion = "dev"

// options are the per-run inputs that do not belong in the config file.
type options struct {
	date     string
	snapshot string
	save     string
	keepOpen bool
}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Path to a YAML config file")
	date := flag.String("date", "", "Target date, M/D or YYYY/M/D (prompted if empty)")
	execPath := flag.String("exec", "", "Browser executable (auto-detect if empty)")
	profile := flag.String("profile", "", "Path to browser profile (default: dedicated profile)")
	headless := flag.Bool("headless", false, "Run the browser without a window")
	historyURL := flag.String("url", "", "Watch history URL")
	snapshot := flag.String("snapshot", "", "Count from a saved history HTML file instead of the browser")
	save := flag.String("save", "", "Write the loaded history HTML to this file after a successful run")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	keepOpen := flag.Bool("keep-open", true, "Keep the browser open after the run until Ctrl+C")
	flag.Parse()

	if *showVersion {
		fmt.Printf("nico-history-counter version %s\n", appVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the config file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "exec":
			cfg.Browser.ExecPath = *execPath
		case "profile":
			cfg.Browser.ProfilePath = *profile
		case "headless":
			cfg.Browser.Headless = *headless
		case "url":
			cfg.HistoryURL = *historyURL
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	restoreLogger, err := logging.Install(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := options{
		date:     *date,
		snapshot: *snapshot,
		save:     *save,
		keepOpen: *keepOpen && !cfg.Browser.Headless,
	}

	if err := run(cfg, opts); err != nil {
		zap.S().Errorf("Error: %v", err)
		restoreLogger()
		os.Exit(1)
	}
	restoreLogger()
}

func run(cfg config.Config, opts options) error {
	input := opts.date
	if input == "" {
		var err error
		input, err = promptDate(os.Stdin, os.Stderr, time.Now())
		if err != nil {
			return err
		}
		if input == "" {
			zap.S().Info("No date entered, nothing to do")
			return nil
		}
	}

	target, err := datefilter.ParseTarget(input, time.Now())
	if err != nil {
		return err
	}

	if opts.snapshot != "" {
		return runSnapshot(os.Stdout, opts.snapshot, target, time.Now())
	}
	return runBrowser(cfg, opts, target)
}

// promptDate asks for the target date, showing today in both accepted forms.
func promptDate(in io.Reader, out io.Writer, now time.Time) (string, error) {
	fmt.Fprintln(out, "Enter the date to count from")
	fmt.Fprintln(out, "Examples:")
	fmt.Fprintf(out, "  %s\n", datefilter.FormatShort(now))
	fmt.Fprintf(out, "  %s\n", datefilter.FormatLong(now))
	fmt.Fprint(out, "> ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read date: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// runSnapshot tallies a saved history page without starting a browser.
func runSnapshot(w io.Writer, path string, target datefilter.Target, now time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	chunks, err := history.ParseHTML(f)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}

	oldest, _ := scroll.OldestDate(chunks, now)
	if oldest.IsZero() || !target.IsBefore(oldest) {
		zap.S().Warnf("⚠️ Snapshot does not reach back before %s, the count may be incomplete", target)
	}

	t := tally.Count(chunks, target, now)
	for _, line := range t.Lines() {
		fmt.Fprintln(w, line)
	}
	return nil
}

func runBrowser(cfg config.Config, opts options, target datefilter.Target) (err error) {
	log := zap.S()
	stats := report.New(target)
	defer stats.Print(os.Stdout)

	bcfg := browser.DefaultConfig()
	bcfg.ExecPath = cfg.Browser.ExecPath
	bcfg.ProfilePath = cfg.Browser.ProfilePath
	bcfg.Headless = cfg.Browser.Headless
	bcfg.WindowWidth = cfg.Browser.WindowWidth
	bcfg.WindowHeight = cfg.Browser.WindowHeight
	bcfg.Timeout = cfg.Browser.Timeout

	// Auto-detect browser if not specified
	if bcfg.ExecPath == "" {
		bcfg.ExecPath = browser.DetectBrowser()
		if bcfg.ExecPath == "" {
			return errors.New("could not find Chrome/Chromium, install it or pass -exec")
		}
		log.Infof("✓ Auto-detected browser: %s", bcfg.ExecPath)
	}
	if bcfg.ProfilePath == "" {
		bcfg.ProfilePath = browser.DefaultProfilePath()
	}

	log.Info("=== niconico watch history counter ===")
	log.Infof("Executable: %s", bcfg.ExecPath)
	log.Infof("Profile: %s", bcfg.ProfilePath)
	log.Infof("Target date: %s", target)

	browserCtx, err := browser.New(context.Background(), bcfg)
	if err != nil {
		stats.AddError("browser", err)
		return err
	}
	defer browserCtx.Close()
	tab := browserCtx.Ctx

	var panel *overlay.Overlay
	defer func() {
		if err == nil {
			return
		}
		stats.AddError("run", err)
		if browser.IsBrowserClosed(err) {
			log.Warn("⚠️ Browser was closed")
			return
		}
		if panel != nil {
			_ = panel.SetMessage(overlay.MsgError)
			_ = panel.Finish()
		}
	}()

	if err := openHistory(tab, cfg.HistoryURL); err != nil {
		return err
	}

	// The loop stops on the page's stop button or on Ctrl+C; the browser stays up.
	loopCtx, stopLoop := context.WithCancel(tab)
	defer stopLoop()
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	context.AfterFunc(sigCtx, stopLoop)

	panel, err = overlay.Install(tab, stopLoop)
	if err != nil {
		return err
	}
	if err := panel.SetMessage(overlay.TargetMessage(target)); err != nil {
		log.Warnf("⚠️ Warning: %v", err)
	}

	page := history.NewLivePage()
	if err := warmUp(loopCtx, cfg.Scroll); err != nil && loopCtx.Err() == nil {
		return err
	}

	result, err := scroll.New(page, target, panel, cfg.ScrollOptions()).Run(loopCtx)
	// Release Ctrl+C so waitForExit can use it.
	stopSignals()
	stats.SetResult(result)
	if err != nil {
		return err
	}

	if err := panel.Finish(); err != nil {
		log.Warnf("⚠️ Warning: %v", err)
	}

	if !result.Success() {
		log.Warnf("⚠️ Stopped before reaching %s (%s)", target, result.Outcome)
		if err := panel.SetMessage(overlay.MsgInterrupted); err != nil {
			log.Warnf("⚠️ Warning: %v", err)
		}
		waitForExit(opts.keepOpen)
		return nil
	}

	chunks, html, err := page.Chunks(tab)
	if err != nil {
		return err
	}
	counts := tally.Count(chunks, target, time.Now())
	stats.SetTally(counts)

	if err := panel.SetMessage(counts.HTML()); err != nil {
		log.Warnf("⚠️ Warning: %v", err)
	}
	for _, line := range counts.Lines() {
		fmt.Println(line)
	}

	if opts.save != "" {
		if err := os.WriteFile(opts.save, []byte(html), 0o644); err != nil {
			stats.AddError("save", err)
			log.Warnf("⚠️ Could not save snapshot: %v", err)
		} else {
			log.Infof("✓ History saved to %s", opts.save)
		}
	}

	log.Infof("✓ %d videos since %s", counts.Total, target)
	waitForExit(opts.keepOpen)
	return nil
}

// openHistory opens the history page, handling a login redirect on the way.
func openHistory(ctx context.Context, historyURL string) error {
	log := zap.S()
	log.Info("Opening watch history...")
	if err := browser.Navigate(ctx, historyURL); err != nil {
		return err
	}

	isLoggedIn, err := auth.CheckLoginStatus(ctx)
	if err != nil {
		log.Warnf("Warning: could not check login status: %v", err)
	}
	if !isLoggedIn {
		if err := auth.WaitForLogin(ctx, historyURL); err != nil {
			return err
		}
	}
	log.Info("✓ User is logged in")

	url, err := browser.GetCurrentURL(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(url, navigation.HistoryURLMarker) {
		log.Infof("Not on the history page (%s), navigating...", url)
		if err := browser.Navigate(ctx, historyURL); err != nil {
			return err
		}
	}
	return nil
}

// warmUp jumps to the top and then the bottom so the first batch starts loading.
func warmUp(ctx context.Context, cfg config.ScrollConfig) error {
	if err := navigation.ScrollToTop(ctx); err != nil {
		return err
	}
	if !pause(ctx, cfg.InitialDelay) {
		return ctx.Err()
	}
	if err := navigation.ScrollToBottom(ctx); err != nil {
		return err
	}
	if !pause(ctx, cfg.BottomDelay) {
		return ctx.Err()
	}
	return nil
}

// pause sleeps for d and reports false if ctx ended first.
func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// waitForExit keeps the browser (and the result panel) open until Ctrl+C.
func waitForExit(keepOpen bool) {
	if !keepOpen {
		return
	}
	zap.S().Info("Browser remains open. Press Ctrl+C to exit.")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
