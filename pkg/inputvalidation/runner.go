package inputvalidation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Options configures a test run.
type Options struct {
	// Categories to probe. Empty means all, in probe order.
	Categories []Category

	// SettleDelay is how long the page gets to react to synthetic events.
	// Too short a delay misses slow asynchronous validation and reports the
	// field as vulnerable; it is a tunable false-positive risk.
	SettleDelay time.Duration

	// ProbeInterval is the pause between two probes.
	ProbeInterval time.Duration

	// MaxRate caps probes per second. Zero disables the cap.
	MaxRate float64

	// Submit fires an intercepted submit event on the field's form.
	Submit bool

	// KeepProbes records the outcome and verdict of every probe in the
	// field results.
	KeepProbes bool

	// RunID identifies the run in results and messages. A random UUID is
	// used when empty.
	RunID string

	Logger *slog.Logger
}

// DefaultOptions returns the options used by the CLI and the host.
func DefaultOptions() Options {
	return Options{
		SettleDelay:   duration.ProbeSettle,
		ProbeInterval: duration.ProbeInterval,
		Submit:        true,
	}
}

// Reporter observes a run. Calls are made from the goroutine running the
// test, in order: OnStart, OnProgress once per probe, then exactly one of
// OnComplete or OnError.
type Reporter interface {
	OnStart(ctx context.Context, run *TestRun)
	OnProgress(ctx context.Context, p Progress)
	OnComplete(ctx context.Context, run *TestRun)
	OnError(ctx context.Context, err error)
}

// NopReporter ignores every call.
type NopReporter struct{}

func (NopReporter) OnStart(context.Context, *TestRun) {}

func (NopReporter) OnProgress(context.Context, Progress) {}

func (NopReporter) OnComplete(context.Context, *TestRun) {}

func (NopReporter) OnError(context.Context, error) {}

// Runner enumerates the fields of a page and probes each of them with every
// planned payload, strictly one probe at a time.
type Runner struct {
	page     Page
	opts     Options
	reporter Reporter
	driver   *Driver
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewRunner creates a runner. A nil reporter is replaced by NopReporter.
func NewRunner(page Page, opts Options, reporter Reporter) *Runner {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = duration.ProbeSettle
	}
	if opts.ProbeInterval < 0 {
		opts.ProbeInterval = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	r := &Runner{
		page:     page,
		opts:     opts,
		reporter: reporter,
		driver:   NewDriver(page, opts.SettleDelay, opts.Submit, opts.Logger),
		logger:   opts.Logger,
	}
	if opts.MaxRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.MaxRate), 1)
	}
	return r
}

// Run performs one complete test run. No state is shared between runs.
//
// Enumeration failures, an empty page and cancellation end the run with an
// error, which is also passed to Reporter.OnError. Per-probe failures are
// recorded in FieldResult.Failures and never abort the run. On cancellation
// the partial run is returned alongside ErrCancelled; it holds the fields
// that were tested with every payload.
func (r *Runner) Run(ctx context.Context) (*TestRun, error) {
	run, fields, err := r.prepare(ctx)
	if err != nil {
		r.reporter.OnError(ctx, err)
		return nil, err
	}
	r.reporter.OnStart(ctx, run)

	plan := Plan(r.opts.Categories)
	names := uniqueNames(fields)

	for i, field := range fields {
		result := FieldResult{
			FieldName:       names[i],
			FieldType:       field.DisplayType(),
			Vulnerabilities: []Finding{},
			Fingerprint:     fingerprint(field),
		}

		for _, payload := range plan {
			if err := r.wait(ctx, run.CompletedProbes); err != nil {
				return r.cancelled(ctx, run, result, err)
			}

			outcome := r.driver.Probe(ctx, field, payload)
			if ctx.Err() != nil {
				return r.cancelled(ctx, run, result, ctx.Err())
			}
			r.record(&result, field, payload, outcome)

			run.CompletedProbes++
			r.reporter.OnProgress(ctx, NewProgress(run.CompletedProbes, run.TotalProbes, result.FieldName))
		}

		result.IsSafe = len(result.Vulnerabilities) == 0
		run.Results = append(run.Results, result)
	}

	run.FinishedAt = time.Now()
	run.Summarize()
	r.logger.Info("test run complete",
		slog.String("url", run.URL),
		slog.Int("fields", run.Summary.TotalFields),
		slog.Int("vulnerable", run.Summary.VulnerableFields),
		slog.Int("failed_probes", run.Summary.FailedProbes))
	r.reporter.OnComplete(ctx, run)
	return run, nil
}

func (r *Runner) prepare(ctx context.Context) (*TestRun, []FieldElement, error) {
	if err := ValidateTarget(r.page.URL()); err != nil {
		return nil, nil, err
	}

	fields, err := r.page.EnumerateFields(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}
	if len(fields) == 0 {
		return nil, nil, ErrNoFields
	}

	categories := r.opts.Categories
	if len(categories) == 0 {
		categories = Categories()
	}
	id := r.opts.RunID
	if id == "" {
		id = uuid.NewString()
	}
	run := &TestRun{
		ID:             id,
		URL:            r.page.URL(),
		CatalogVersion: CatalogVersion,
		Categories:     categories,
		StartedAt:      time.Now(),
		TotalFields:    len(fields),
		TotalProbes:    len(fields) * len(Plan(r.opts.Categories)),
		Results:        make([]FieldResult, 0, len(fields)),
	}
	r.logger.Info("test run started",
		slog.String("id", run.ID),
		slog.String("url", run.URL),
		slog.Int("fields", len(fields)),
		slog.Int("probes", run.TotalProbes))
	return run, fields, nil
}

// wait paces probes: the inter-probe interval after the first probe, then
// the rate cap. It returns ctx's error if cancelled while waiting.
func (r *Runner) wait(ctx context.Context, completed int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if completed > 0 && r.opts.ProbeInterval > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.opts.ProbeInterval):
		}
	}
	if r.limiter != nil {
		return r.limiter.Wait(ctx)
	}
	return nil
}

func (r *Runner) record(result *FieldResult, field FieldElement, payload Payload, outcome Outcome) {
	var verdict Verdict
	if outcome.Err != nil {
		note := fmt.Sprintf("%s (%s): %v", payload.Description, payload.Category.DisplayName(), outcome.Err)
		result.Failures = append(result.Failures, note)
		verdict = Verdict{Reason: "probe failed: " + outcome.Err.Error()}
		r.logger.Warn("probe failed",
			slog.String("field", result.FieldName),
			slog.String("payload", payload.Description),
			slog.String("error", outcome.Err.Error()))
	} else {
		fc := ClassifyField(field)
		verdict = Classify(payload.Category, fc, outcome)
		if verdict.Vulnerable {
			result.Vulnerabilities = append(result.Vulnerabilities, Finding{
				Type:           payload.Category.DisplayName(),
				Category:       payload.Category,
				Description:    payload.Description,
				Payload:        payload.Value,
				AdditionalInfo: verdict.Reason,
				ValidationInfo: ValidationInfo{
					InputType:      fc.Type,
					HasPattern:     fc.HasPattern(),
					HasLengthLimit: fc.HasLengthLimit(),
				},
			})
		}
	}

	if r.opts.KeepProbes {
		rec := ProbeRecord{Payload: payload.Value, Outcome: outcome, Verdict: verdict}
		if outcome.Err != nil {
			rec.Error = outcome.Err.Error()
		}
		result.Probes = append(result.Probes, rec)
	}
}

// cancelled ends the run early. Only fields whose payloads all ran reach a
// terminal state; the field in progress is dropped from the results.
func (r *Runner) cancelled(ctx context.Context, run *TestRun, partial FieldResult, cause error) (*TestRun, error) {
	if len(partial.Vulnerabilities) > 0 {
		r.logger.Debug("discarding partially tested field",
			slog.String("field", partial.FieldName),
			slog.Int("findings", len(partial.Vulnerabilities)))
	}
	run.FinishedAt = time.Now()
	run.Summarize()

	err := ErrCancelled
	if cause != nil && !errors.Is(cause, context.Canceled) {
		err = fmt.Errorf("%w: %w", ErrCancelled, cause)
	}
	r.logger.Info("test run cancelled",
		slog.String("id", run.ID),
		slog.Int("completed", run.CompletedProbes),
		slog.Int("total", run.TotalProbes))
	r.reporter.OnError(ctx, err)
	return run, err
}
