// Package headless drives a real Chrome through chromedp and exposes each
// loaded tab as an inputvalidation.Page, so probes run against the page's
// own scripts: its listeners, framework bindings and validation code.
package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
)

// ErrChromeNotFound indicates no Chrome or Chromium binary could be located.
var ErrChromeNotFound = errors.New("headless: chrome not found (install Chrome/Chromium or set browser.chrome_path)")

// Config holds headless browser configuration.
type Config struct {
	ChromePath  string        `json:"chrome_path,omitempty" yaml:"chrome_path"`
	RemoteURL   string        `json:"remote_url,omitempty" yaml:"remote_url"` // DevTools websocket of a running browser
	ShowBrowser bool          `json:"show_browser" yaml:"show_browser"`
	NoSandbox   bool          `json:"no_sandbox" yaml:"no_sandbox"`
	Proxy       string        `json:"proxy,omitempty" yaml:"proxy"`
	UserAgent   string        `json:"user_agent,omitempty" yaml:"user_agent"`
	PageTimeout time.Duration `json:"-" yaml:"page_timeout"`
	IdleTimeout time.Duration `json:"-" yaml:"idle_timeout"`
	ExtraArgs   []string      `json:"extra_args,omitempty" yaml:"extra_args,omitempty"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		NoSandbox:   true,
		UserAgent:   defaults.UAChrome,
		PageTimeout: duration.BrowserPage,
		IdleTimeout: duration.BrowserIdle,
	}
}

// Browser is a launched (or attached) Chrome instance.
type Browser struct {
	cfg           Config
	ctx           context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

// Launch starts Chrome, or attaches to it when RemoteURL is set. The
// returned browser must be closed.
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = duration.BrowserPage
	}
	if cfg.IdleTimeout < 0 {
		cfg.IdleTimeout = 0
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		opts, err := allocatorOptions(cfg)
		if err != nil {
			return nil, err
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	b := &Browser{cfg: cfg, ctx: browserCtx, allocCancel: allocCancel, browserCancel: browserCancel}

	// The first Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return b, nil
}

func allocatorOptions(cfg Config) ([]chromedp.ExecAllocatorOption, error) {
	var opts []chromedp.ExecAllocatorOption
	if cfg.ShowBrowser {
		// DefaultExecAllocatorOptions[2] is chromedp.Headless
		for i, o := range chromedp.DefaultExecAllocatorOptions {
			if i != 2 {
				opts = append(opts, o)
			}
		}
	} else {
		opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	opts = append(opts, chromedp.Flag("disable-dev-shm-usage", true))
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}
	for _, arg := range cfg.ExtraArgs {
		opts = append(opts, chromedp.Flag(trimFlag(arg), true))
	}

	path := cfg.ChromePath
	if path == "" {
		path = FindChrome()
	}
	if path == "" {
		return nil, ErrChromeNotFound
	}
	return append(opts, chromedp.ExecPath(path)), nil
}

func trimFlag(arg string) string {
	for len(arg) > 0 && arg[0] == '-' {
		arg = arg[1:]
	}
	return arg
}

// FindChrome returns the path of a Chrome or Chromium binary, or "".
func FindChrome() string {
	for _, name := range []string{"chrome", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil && path != "" {
			return path
		}
	}

	// Well-known paths for systems where PATH isn't configured
	candidates := []string{
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`/usr/bin/google-chrome`,
		`/usr/bin/chromium-browser`,
		`/usr/bin/chromium`,
		`/snap/bin/chromium`,
		`/Applications/Google Chrome.app/Contents/MacOS/Google Chrome`,
		`/Applications/Chromium.app/Contents/MacOS/Chromium`,
	}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		candidates = append(candidates, local+`\Google\Chrome\Application\chrome.exe`)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Close shuts the browser down. Chrome child processes can block a graceful
// cancel indefinitely on some platforms, so after duration.BrowserShutdown
// the process tree is killed.
func (b *Browser) Close() {
	var proc *os.Process
	if c := chromedp.FromContext(b.ctx); c != nil && c.Browser != nil {
		proc = c.Browser.Process()
	}

	done := make(chan struct{})
	go func() {
		b.browserCancel()
		b.allocCancel()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(duration.BrowserShutdown):
		killProcessTree(proc)
	}
}
