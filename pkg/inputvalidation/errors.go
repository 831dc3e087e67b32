package inputvalidation

import "errors"

// Sentinel errors for run failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrEnumerate indicates the page could not be queried for fields.
	ErrEnumerate = errors.New("inputvalidation: cannot enumerate fields")

	// ErrNoFields indicates the page has no candidate input fields.
	ErrNoFields = errors.New("inputvalidation: no input fields found")

	// ErrCancelled indicates the run was cancelled between probes.
	ErrCancelled = errors.New("inputvalidation: test run cancelled")

	// ErrFieldGone indicates a field disappeared from the document mid-run.
	ErrFieldGone = errors.New("inputvalidation: field no longer in document")

	// ErrSystemPage indicates the target is a browser-internal page.
	ErrSystemPage = errors.New("inputvalidation: cannot test browser system pages")
)
