// Package exitcode maps test run outcomes onto process exit codes, so CI
// pipelines can tell findings apart from broken runs.
//
// Exit codes:
//   - 0: Success (no vulnerable field)
//   - 1: Findings (at least one vulnerable field)
//   - 2: User error (arguments, configuration, target)
//   - 3: Browser or network failure
//   - 4: Internal error
package exitcode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"sync"

	"github.com/fieldprobe/fieldprobe/pkg/config"
	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/fakedom"
	"github.com/fieldprobe/fieldprobe/pkg/headless"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Code is a process exit code.
type Code int

const (
	Success   Code = defaults.ExitSuccess
	Findings  Code = defaults.ExitFindings
	UserError Code = defaults.ExitUserError
	Network   Code = defaults.ExitNetworkError
	Internal  Code = defaults.ExitInternalError
)

// ErrUsage marks an invalid command line.
var ErrUsage = errors.New("usage")

// Usage formats a command line error wrapping ErrUsage.
func Usage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

var codeStrings = map[Code]string{
	Success:   "success",
	Findings:  "findings",
	UserError: "user_error",
	Network:   "network_error",
	Internal:  "internal_error",
}

var codeDescriptions = map[Code]string{
	Success:   "No vulnerable field found",
	Findings:  "At least one field kept a dangerous payload",
	UserError: "Invalid arguments, configuration or target",
	Network:   "The browser or the page could not be reached",
	Internal:  "Unexpected internal error",
}

// String returns the short name of the code.
func (c Code) String() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return "unknown"
}

// Description returns a sentence explaining the code.
func (c Code) Description() string {
	if s, ok := codeDescriptions[c]; ok {
		return s
	}
	return "Unknown exit code"
}

// Int returns the code as passed to os.Exit.
func (c Code) Int() int { return int(c) }

// FromError classifies the error a command ended with. User errors are
// checked first: a missing fixture wrapped in ErrEnumerate is still the
// caller's mistake.
func FromError(err error) Code {
	var netErr net.Error
	var statusErr *fakedom.StatusError
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrUsage),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrMissingRequired),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, inputvalidation.ErrSystemPage),
		errors.Is(err, inputvalidation.ErrNoFields),
		errors.Is(err, inputvalidation.ErrCancelled),
		errors.Is(err, fakedom.ErrScript),
		errors.Is(err, fs.ErrNotExist):
		return UserError
	case errors.Is(err, inputvalidation.ErrEnumerate),
		errors.Is(err, headless.ErrChromeNotFound),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr),
		errors.As(err, &statusErr):
		return Network
	}
	return Internal
}

// Config holds configuration for the exit code manager.
type Config struct {
	// IgnoreFindings makes vulnerable fields exit with Success.
	IgnoreFindings bool
}

// Manager follows the results published on a dispatcher and decides the
// exit code once the run is over. It implements dispatcher.Hook.
type Manager struct {
	cfg Config

	mu         sync.Mutex
	runs       int
	vulnerable int
	failed     int
	lastError  string
}

// New creates a manager.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// OnEvent records results and error events.
func (m *Manager) OnEvent(_ context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch e := event.(type) {
	case *events.ResultsEvent:
		m.runs++
		m.vulnerable += e.Summary.VulnerableFields
		m.failed += e.Summary.FailedProbes
	case *events.ErrorEvent:
		m.lastError = e.Kind
	}
	return nil
}

// EventTypes returns the results and error types.
func (m *Manager) EventTypes() []events.EventType {
	return []events.EventType{events.EventTypeResults, events.EventTypeError}
}

// Vulnerable returns the number of vulnerable fields seen so far.
func (m *Manager) Vulnerable() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vulnerable
}

// FailedProbes returns the number of probes that could not run.
func (m *Manager) FailedProbes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

// ExitCode returns the code for a command that ended with err, and a
// reason. An error always wins over findings.
func (m *Manager) ExitCode(err error) (Code, string) {
	if err != nil {
		c := FromError(err)
		return c, c.Description()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.vulnerable > 0 && !m.cfg.IgnoreFindings:
		return Findings, fmt.Sprintf("%d vulnerable field(s)", m.vulnerable)
	case m.runs == 0 && m.lastError != "":
		// An error event with no results means the run failed even
		// though the caller saw no error.
		return Internal, "run failed: " + m.lastError
	}
	return Success, Success.Description()
}
