// Package httpclient builds the HTTP client used to fetch pages for static
// probing. By default it presents a browser TLS fingerprint (pkg/tls) so the
// fetched document matches what a browser would have been served.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/duration"
	fptls "github.com/fieldprobe/fieldprobe/pkg/tls"
)

// maxRedirects matches the browser limit.
const maxRedirects = 20

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: duration.HTTPFetch)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// Proxy is an HTTP/HTTPS proxy URL (optional). A proxy disables the
	// browser fingerprint, since the TLS session is the proxy's.
	Proxy string

	// TLSProfile names the browser fingerprint (see pkg/tls). "none" uses
	// the Go TLS stack.
	TLSProfile string

	// UserAgent overrides the profile's user agent.
	UserAgent string

	// Headers are added to every request.
	Headers http.Header

	// RetryCount is how often a 429 or 503 answer is retried.
	RetryCount int
}

// DefaultConfig returns the configuration used for page fetches.
func DefaultConfig() Config {
	return Config{
		Timeout:    duration.HTTPFetch,
		TLSProfile: "chrome",
		RetryCount: 1,
	}
}

// New creates an HTTP client. Redirects are followed like a browser does,
// since the page to probe is wherever the address ends up.
func New(cfg Config) (*http.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = duration.HTTPFetch
	}

	base, err := baseTransport(cfg)
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = base
	if needsMiddleware(cfg) {
		rt = &middlewareTransport{
			base:       base,
			userAgent:  cfg.UserAgent,
			headers:    cfg.Headers,
			retryCount: cfg.RetryCount,
			retryDelay: duration.HTTPRetry,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}, nil
}

func baseTransport(cfg Config) (http.RoundTripper, error) {
	if cfg.Proxy == "" && cfg.TLSProfile != "" && cfg.TLSProfile != "none" {
		profile, err := fptls.ProfileByName(cfg.TLSProfile)
		if err != nil {
			return nil, err
		}
		return fptls.NewTransport(fptls.Config{
			Profile:     profile,
			DialTimeout: duration.DialTimeout,
			SkipVerify:  cfg.InsecureSkipVerify,
		}), nil
	}

	dialer := &net.Dialer{Timeout: duration.DialTimeout}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: duration.TLSHandshake,
		DialContext:         dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, ErrInvalidProxy
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return transport, nil
}
