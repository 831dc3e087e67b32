package httpclient

import (
	"net/http"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/iohelper"
)

// middlewareTransport wraps a base RoundTripper to add a user agent, extra
// headers, and a retry on 429/503 answers.
type middlewareTransport struct {
	base       http.RoundTripper
	userAgent  string
	headers    http.Header
	retryCount int
	retryDelay time.Duration
}

// retryableStatusCodes are answers from rate limiters and overloaded
// front ends, which often pass on a second attempt.
var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

// RoundTrip implements http.RoundTripper with middleware.
func (m *middlewareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if m.userAgent != "" {
		r.Header.Set("User-Agent", m.userAgent)
	}
	for key, vals := range m.headers {
		for _, v := range vals {
			r.Header.Add(key, v)
		}
	}

	attempts := max(m.retryCount+1, 1)

	var resp *http.Response
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-r.Context().Done():
				return nil, r.Context().Err()
			case <-time.After(m.retryDelay):
			}
			if r.GetBody != nil {
				r.Body, _ = r.GetBody()
			}
		}

		resp, err = m.base.RoundTrip(r)
		if err != nil {
			continue
		}
		if retryableStatusCodes[resp.StatusCode] && i < attempts-1 {
			iohelper.DrainAndClose(resp.Body)
			continue
		}
		return resp, nil
	}
	return resp, err
}

// needsMiddleware reports whether the config requires the middleware transport.
func needsMiddleware(cfg Config) bool {
	return cfg.UserAgent != "" || len(cfg.Headers) > 0 || cfg.RetryCount > 0
}
