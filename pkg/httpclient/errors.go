package httpclient

import "errors"

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidProxy indicates the configured proxy URL cannot be used.
	ErrInvalidProxy = errors.New("httpclient: invalid proxy URL")

	// ErrTooManyRedirects indicates the redirect chain exceeded the browser limit.
	ErrTooManyRedirects = errors.New("httpclient: too many redirects")
)
