// Package config loads the counter's settings from defaults, an optional YAML
// file and NICO_* environment variables (including .env files).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cantalupo555/nico-history-counter/internal/logging"
	"github.com/cantalupo555/nico-history-counter/internal/navigation"
	"github.com/cantalupo555/nico-history-counter/internal/scroll"
)

// Config is the full tool configuration.
type Config struct {
	HistoryURL string         `yaml:"history_url"`
	Browser    BrowserConfig  `yaml:"browser"`
	Scroll     ScrollConfig   `yaml:"scroll"`
	Log        logging.Config `yaml:"log"`
}

// BrowserConfig controls the Chromium instance.
type BrowserConfig struct {
	ExecPath     string        `yaml:"exec_path"`
	ProfilePath  string        `yaml:"profile_path"`
	Headless     bool          `yaml:"headless"`
	WindowWidth  int           `yaml:"window_width"`
	WindowHeight int           `yaml:"window_height"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ScrollConfig mirrors scroll.Options plus the delays of the warm-up scroll.
type ScrollConfig struct {
	MaxAttempts          int           `yaml:"max_attempts"`
	ScrollAmount         float64       `yaml:"scroll_amount"`
	ScrollMultiplier     float64       `yaml:"scroll_multiplier"`
	WaitNormal           time.Duration `yaml:"wait_normal"`
	WaitSlow             time.Duration `yaml:"wait_slow"`
	SameHeightLimit      int           `yaml:"same_height_limit"`
	SlowThreshold        int           `yaml:"slow_threshold"`
	TargetStreakRequired int           `yaml:"target_streak"`
	SettleDelay          time.Duration `yaml:"settle_delay"`
	FailureDelay         time.Duration `yaml:"failure_delay"`
	InitialDelay         time.Duration `yaml:"initial_delay"`
	BottomDelay          time.Duration `yaml:"bottom_delay"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := scroll.DefaultOptions()
	return Config{
		HistoryURL: navigation.HistoryURL,
		Browser: BrowserConfig{
			WindowWidth:  1280,
			WindowHeight: 900,
			Timeout:      time.Hour,
		},
		Scroll: ScrollConfig{
			MaxAttempts:          opts.MaxAttempts,
			ScrollAmount:         opts.ScrollAmount,
			ScrollMultiplier:     opts.ScrollMultiplier,
			WaitNormal:           opts.WaitNormal,
			WaitSlow:             opts.WaitSlow,
			SameHeightLimit:      opts.SameHeightLimit,
			SlowThreshold:        opts.SlowThreshold,
			TargetStreakRequired: opts.TargetStreakRequired,
			SettleDelay:          opts.SettleDelay,
			FailureDelay:         opts.FailureDelay,
			InitialDelay:         500 * time.Millisecond,
			BottomDelay:          time.Second,
		},
		Log: logging.Config{Level: "info", Format: "console"},
	}
}

// Load reads path (if not empty) over the defaults, then applies environment
// overrides. .env.local and .env are loaded first unless ENV_FILE names a file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.HistoryURL, "NICO_HISTORY_URL")
	setString(&cfg.Browser.ExecPath, "NICO_BROWSER_EXEC")
	setString(&cfg.Browser.ProfilePath, "NICO_BROWSER_PROFILE")
	setString(&cfg.Log.Level, "NICO_LOG_LEVEL")
	setString(&cfg.Log.Format, "NICO_LOG_FORMAT")

	if v, ok := lookup("NICO_HEADLESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NICO_HEADLESS: %w", err)
		}
		cfg.Browser.Headless = b
	}
	if v, ok := lookup("NICO_MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NICO_MAX_ATTEMPTS: %w", err)
		}
		cfg.Scroll.MaxAttempts = n
	}
	if v, ok := lookup("NICO_BROWSER_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NICO_BROWSER_TIMEOUT: %w", err)
		}
		cfg.Browser.Timeout = d
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

// Validate rejects settings the scroll loop cannot work with.
func (c Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.HistoryURL, "http://") && !strings.HasPrefix(c.HistoryURL, "https://") {
		errs = append(errs, fmt.Errorf("history_url must be an http(s) URL, got %q", c.HistoryURL))
	}
	s := c.Scroll
	if s.MaxAttempts <= 0 {
		errs = append(errs, errors.New("scroll.max_attempts must be positive"))
	}
	if s.SameHeightLimit <= 0 {
		errs = append(errs, errors.New("scroll.same_height_limit must be positive"))
	}
	if s.TargetStreakRequired <= 0 {
		errs = append(errs, errors.New("scroll.target_streak must be positive"))
	}
	if s.ScrollAmount <= 0 || s.ScrollMultiplier <= 0 {
		errs = append(errs, errors.New("scroll.scroll_amount and scroll.scroll_multiplier must be positive"))
	}
	if s.WaitNormal <= 0 || s.WaitSlow <= 0 {
		errs = append(errs, errors.New("scroll.wait_normal and scroll.wait_slow must be positive"))
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// ScrollOptions converts the scroll section into controller options.
func (c Config) ScrollOptions() scroll.Options {
	s := c.Scroll
	return scroll.Options{
		MaxAttempts:          s.MaxAttempts,
		ScrollAmount:         s.ScrollAmount,
		ScrollMultiplier:     s.ScrollMultiplier,
		WaitNormal:           s.WaitNormal,
		WaitSlow:             s.WaitSlow,
		SameHeightLimit:      s.SameHeightLimit,
		SlowThreshold:        s.SlowThreshold,
		TargetStreakRequired: s.TargetStreakRequired,
		SettleDelay:          s.SettleDelay,
		FailureDelay:         s.FailureDelay,
	}
}
