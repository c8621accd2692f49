package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/durapage/durapage/internal/config"
	"github.com/durapage/durapage/internal/plugin"
	"github.com/durapage/durapage/internal/retry"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// extensions dropped next to the managed plugin directories are attached
	// without a config toggle
	localExtensionDir = "gpt_rf"
)

// lookPath is swapped out in tests to keep path resolution deterministic.
var lookPath = launcher.LookPath

func browserPathCandidates() []string {
	if runtime.GOOS == "windows" {
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
		}
	}
	return []string{
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/microsoft-edge",
		"/snap/bin/chromium",
		"/usr/lib/chromium/chromium",
		"/usr/lib/chromium-browser/chromium-browser",
	}
}

// resolveBrowserPath picks the browser executable: caller override first, then
// the platform candidate list, then whatever rod can find on the system.
func resolveBrowserPath(override string, candidates []string) (string, error) {
	if override != "" {
		return override, nil
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if path, found := lookPath(); found {
		return path, nil
	}
	return "", NewNotFoundError(candidates)
}

// isElevated reports root execution; Geteuid is -1 on Windows so elevation is
// never detected there.
func isElevated() bool {
	return os.Geteuid() == 0
}

// Launch resolves the browser executable, assembles the launch flags, attaches
// the provisioned extensions and connects to the freshly started browser.
func Launch(ctx context.Context, conf *config.Config, provisioner *plugin.Provisioner, log *slog.Logger) (*Session, error) {
	binPath, err := resolveBrowserPath(*conf.Browser.Path, browserPathCandidates())
	if err != nil {
		return nil, fmt.Errorf("failure resolving browser executable path: %w", err)
	}
	l := launcher.New().Headless(*conf.Browser.Headless).Bin(binPath).
		Set("hide-crash-restore-bubble").
		Set("lang", "en-US").
		Set("accept-languages", "en-US,en").
		Set("disable-save-password-bubble").
		Set("disable-popup-blocking").
		Set("user-agent", userAgentOrDefault(*conf.Browser.UserAgent))
	if isElevated() {
		log.Warn("running with elevated privileges, disabling browser sandbox")
		l = l.Set("no-sandbox").Set("disable-dev-shm-usage")
		if runtime.GOOS != "windows" {
			l = l.Set("disable-gpu").Set("disable-software-rasterizer")
		}
	}
	if *conf.Browser.Proxy != "" {
		l = l.Proxy(*conf.Browser.Proxy)
	}
	if extensions := attachExtensions(ctx, conf, provisioner, log); len(extensions) > 0 {
		if *conf.Browser.Headless {
			log.Warn("extensions may not load in headless mode", slog.Any("extensions", extensions))
		}
		l = l.Set("load-extension", strings.Join(extensions, ","))
	}
	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failure launching browser: %w", err)
	}
	b := rod.New().Context(ctx).ControlURL(browserURL).Trace(*conf.Browser.Trace)
	if err = b.Connect(); err != nil {
		return nil, fmt.Errorf("failure connecting to browser: %w", err)
	}
	log.Info("launched new browser instance",
		slog.String("url", browserURL),
		slog.Bool("headless", *conf.Browser.Headless),
		slog.Bool("trace", *conf.Browser.Trace),
		slog.String("path", binPath),
	)
	policy := retry.Policy{
		Attempts: *conf.Retry.Attempts,
		Delay:    *conf.Retry.Delay,
		Backoff:  *conf.Retry.Backoff,
		Jitter:   *conf.Retry.Jitter,
	}
	return NewSession(b, l, policy, log), nil
}

// attachExtensions resolves the extension directories to load: the enabled
// plugin toggles filtered down to what the provisioner could make available,
// plus any local extension directory found next to them.
func attachExtensions(ctx context.Context, conf *config.Config, provisioner *plugin.Provisioner, log *slog.Logger) []string {
	toggles := []struct {
		enabled bool
		name    string
	}{
		{*conf.Plugins.CFBypass, plugin.NameTurnstilePatch},
		{*conf.Plugins.Fingerprint, plugin.NameFingerprint},
		{*conf.Plugins.UAPatch, plugin.NameUAPatch},
	}
	names := make([]string, 0, len(toggles))
	for _, toggle := range toggles {
		if toggle.enabled {
			names = append(names, toggle.name)
		}
	}
	available := provisioner.EnsureAll(ctx, names...)
	paths := make([]string, 0, len(names)+1)
	for _, name := range names {
		if !slices.Contains(available, name) {
			log.Warn("plugin unavailable, skipping", slog.String("plugin", name))
			continue
		}
		paths = append(paths, provisioner.Dir(name))
	}
	local := filepath.Join(*conf.Plugins.Dir, localExtensionDir)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		paths = append(paths, local)
	}
	return paths
}

func userAgentOrDefault(userAgent string) string {
	if userAgent != "" {
		return userAgent
	}
	return defaultUserAgent
}
