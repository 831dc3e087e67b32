package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/fieldprobe/fieldprobe/pkg/fakedom"
	"github.com/fieldprobe/fieldprobe/pkg/headless"
	"github.com/fieldprobe/fieldprobe/pkg/httpclient"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// PageSourceConfig selects how targets are loaded.
type PageSourceConfig struct {
	Browser headless.Config

	// Static fetches http(s) targets and probes the parsed markup instead
	// of driving a browser. Page scripts other than reactions do not run.
	Static bool

	// Client is used for static fetches. Nil builds one with the browser
	// fingerprint and the browser proxy.
	Client *http.Client

	Logger *slog.Logger
}

// PageSource opens pages for the runner. Local files and file:// targets
// are always parsed directly; the browser is launched on first use and
// shared by every later page.
type PageSource struct {
	cfg    PageSourceConfig
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	browser *headless.Browser
}

// NewPageSource builds a page source. No browser is started yet.
func NewPageSource(cfg PageSourceConfig) (*PageSource, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		hc := httpclient.DefaultConfig()
		hc.Proxy = cfg.Browser.Proxy
		hc.UserAgent = cfg.Browser.UserAgent
		var err error
		if client, err = httpclient.New(hc); err != nil {
			return nil, fmt.Errorf("http client: %w", err)
		}
	}
	return &PageSource{cfg: cfg, client: client, logger: cfg.Logger}, nil
}

// Open loads target. release frees the page and must be called once the
// run is done with it. It matches messaging.OpenFunc.
func (s *PageSource) Open(ctx context.Context, target string) (inputvalidation.Page, func(), error) {
	if s.cfg.Static || isLocal(target) {
		doc, err := fakedom.Open(ctx, s.client, target, fakedom.WithLogger(s.logger))
		if err != nil {
			return nil, nil, err
		}
		s.logger.Debug("page parsed", slog.String("url", doc.URL()), slog.String("title", doc.Title()))
		return doc, func() {}, nil
	}

	b, err := s.launch(ctx)
	if err != nil {
		return nil, nil, err
	}
	page, err := b.Open(ctx, target, s.logger)
	if err != nil {
		return nil, nil, err
	}
	return page, page.Close, nil
}

// launch starts the shared browser. Its lifetime is the source's, not the
// context of the run that happened to need it first.
func (s *PageSource) launch(ctx context.Context) (*headless.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser != nil {
		return s.browser, nil
	}
	b, err := headless.Launch(context.WithoutCancel(ctx), s.cfg.Browser)
	if err != nil {
		return nil, err
	}
	s.browser = b
	return b, nil
}

// Close shuts the browser down if one was started.
func (s *PageSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser != nil {
		s.browser.Close()
		s.browser = nil
	}
}

func isLocal(target string) bool {
	if strings.HasPrefix(target, "about:") || strings.HasPrefix(target, "data:") {
		return false
	}
	return strings.HasPrefix(target, "file://") || !strings.Contains(target, "://")
}
