// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for runtime configuration defaults that
// are not durations (see pkg/duration for those).
package defaults

import "fmt"

// Version is the current fieldprobe version
const Version = "0.6.0"

// ToolName is the canonical tool name used in banners, telemetry and user agents.
const ToolName = "fieldprobe"

// ============================================================================
// REPORT FILES
// ============================================================================

const (
	// ReportPrefix is the file name prefix of text report exports
	ReportPrefix = "security-test-report-"

	// ReportExt is the file extension of text report exports
	ReportExt = ".txt"
)

// ============================================================================
// TELEMETRY
// ============================================================================

const (
	// MetricsPort is the default Prometheus metrics port (9090)
	MetricsPort = 9090

	// MetricsPath is the default Prometheus metrics path
	MetricsPath = "/metrics"

	// OTelEndpoint is the default OTLP gRPC collector address
	OTelEndpoint = "localhost:4317"
)

// ============================================================================
// USER AGENTS
// ============================================================================

const (
	// UAChrome is a Chrome user agent matching the default TLS fingerprint
	UAChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// UAMinimal is a minimal user agent
	UAMinimal = "fieldprobe/" + Version
)

// UserAgent returns the fieldprobe user agent with context
func UserAgent(context string) string {
	if context == "" {
		return UAMinimal
	}
	return fmt.Sprintf("fieldprobe/%s (%s)", Version, context)
}

// ============================================================================
// LIMITS
// ============================================================================

const (
	// MaxFixtureBytes caps the size of a fetched or loaded HTML document (10 MiB)
	MaxFixtureBytes = 10 << 20

	// MaxScriptAllocs caps allocations of one page reaction script run
	MaxScriptAllocs = 10_000_000
)
