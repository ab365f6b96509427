// Package browser provides Chrome/Chromedp initialization and configuration.
package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// DetectBrowser attempts to find a Chrome/Chromium executable on the system.
// Returns the path to the executable, or empty string if not found.
func DetectBrowser() string {
	return detectFrom(candidatesFor(runtime.GOOS), exec.LookPath)
}

func candidatesFor(goos string) []string {
	switch goos {
	case "windows":
		return getWindowsCandidates()
	case "darwin":
		return getMacOSCandidates()
	default: // linux and others
		return getLinuxCandidates()
	}
}

// detectFrom returns the first existing candidate, falling back to PATH lookup.
func detectFrom(candidates []string, lookPath func(string) (string, error)) string {
	for _, path := range candidates {
		if path == "" {
			continue
		}
		expanded := os.ExpandEnv(path)
		if _, err := os.Stat(expanded); err == nil {
			return expanded
		}
	}

	// Fallback: try to find in PATH
	for _, name := range []string{"chrome", "chromium", "chromium-browser", "google-chrome"} {
		if path, err := lookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// getWindowsCandidates lists Chrome, Chromium, Edge and Brave install paths.
func getWindowsCandidates() []string {
	var paths []string
	for _, root := range []string{os.Getenv("ProgramFiles"), os.Getenv("ProgramFiles(x86)"), os.Getenv("LOCALAPPDATA")} {
		if root == "" {
			continue
		}
		paths = append(paths,
			filepath.Join(root, "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(root, "Chromium", "Application", "chrome.exe"),
			filepath.Join(root, "Microsoft", "Edge", "Application", "msedge.exe"),
			filepath.Join(root, "BraveSoftware", "Brave-Browser", "Application", "brave.exe"),
		)
	}
	return paths
}

func getMacOSCandidates() []string {
	return []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"$HOME/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
	}
}

func getLinuxCandidates() []string {
	return []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
		"/var/lib/flatpak/exports/bin/org.chromium.Chromium",
		"/usr/bin/microsoft-edge-stable",
		"/usr/bin/brave-browser",
	}
}

// DefaultProfilePath returns the dedicated browser profile used to keep the
// niconico session between runs.
func DefaultProfilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(homeDir, ".nico-history-counter", "profile")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "nico-history-counter")
	default: // linux
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "nico-history-counter", "profile")
		}
		return filepath.Join(homeDir, ".config", "nico-history-counter", "profile")
	}
}
