// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	opts.SettleDelay = duration.ProbeSettle
//	ctx, cancel := context.WithTimeout(ctx, duration.BrowserPage)
//
// DO NOT use hardcoded values like `300 * time.Millisecond` in struct fields
// named *Timeout, *Delay or *Interval. Reference a constant from this package.
package duration

import "time"

// ============================================================================
// PROBE TIMING
// ============================================================================
//
// The settle delay is how long the page gets to react to synthetic events
// before the field is read back. Pages with slow asynchronous validation may
// need more; a short delay is a false-negative risk, not a correctness bug.
// ============================================================================

const (
	// ProbeSettle is the default wait after firing synthetic events (300ms)
	ProbeSettle = 300 * time.Millisecond

	// ProbeInterval is the default pause between two probes (100ms)
	ProbeInterval = 100 * time.Millisecond

	// ProbeRestore bounds the restore step, which runs even after cancellation (5s)
	ProbeRestore = 5 * time.Second

	// ProbeSettleMax is the largest settle delay accepted from configuration (30s)
	ProbeSettleMax = 30 * time.Second
)

// ============================================================================
// BROWSER/HEADLESS TIMEOUTS
// ============================================================================
//
// Use these for chromedp and headless browser operations.
// ============================================================================

const (
	// BrowserPage is for page load timeout (30s)
	BrowserPage = 30 * time.Second

	// BrowserIdle is the quiet period after load before enumeration (2s)
	BrowserIdle = 2 * time.Second

	// BrowserShutdown bounds graceful browser cancel before force-kill (5s)
	BrowserShutdown = 5 * time.Second
)

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// HTTPFetch is for fetching a page for static probing (30s)
	HTTPFetch = 30 * time.Second

	// DialTimeout is for establishing TCP connections (10s)
	DialTimeout = 10 * time.Second

	// TLSHandshake is for TLS handshake timeout (10s)
	TLSHandshake = 10 * time.Second

	// HTTPRetry is the pause before retrying a 429/503 answer (1s)
	HTTPRetry = 1 * time.Second
)

// ============================================================================
// TELEMETRY/SERVER
// ============================================================================

const (
	// ServerShutdown is for graceful shutdown of metrics servers and exporters (5s)
	ServerShutdown = 5 * time.Second

	// ServerRead is the read timeout for the metrics endpoint (5s)
	ServerRead = 5 * time.Second

	// ServerWrite is the write timeout for the metrics endpoint (10s)
	ServerWrite = 10 * time.Second

	// TelemetryConnect bounds the OTLP exporter connection (10s)
	TelemetryConnect = 10 * time.Second

	// WebhookTimeout bounds one webhook delivery attempt (10s)
	WebhookTimeout = 10 * time.Second
)

// ============================================================================
// CLI
// ============================================================================

const (
	// SignalGrace is how long a second interrupt is awaited before force exit (10s)
	SignalGrace = 10 * time.Second

	// RunMax bounds one complete test run from the CLI (30min)
	RunMax = 30 * time.Minute

	// UIRefresh is the live progress redraw interval (100ms)
	UIRefresh = 100 * time.Millisecond
)
