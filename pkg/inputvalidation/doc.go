// Package inputvalidation probes the input fields of a loaded page for
// signs of missing input validation.
//
// For every candidate field (inputs that are not hidden, and textareas) and
// every payload of the catalog, the Driver writes the payload into the live
// field, fires the events a user edit would fire, gives the page time to
// react, reads the field back and restores it. The outcome is classified
// per category (XSS, SQL injection, special characters) with heuristics
// that take the field's context into account, and a Runner aggregates the
// verdicts into a TestRun.
//
// The page itself is reached through the Page interface, implemented by
// pkg/headless for a real browser and by pkg/fakedom for HTML fixtures.
//
// Usage:
//
//	runner := inputvalidation.NewRunner(page, inputvalidation.DefaultOptions(), reporter)
//	run, err := runner.Run(ctx)
package inputvalidation
