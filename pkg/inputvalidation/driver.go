package inputvalidation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/duration"
)

// Driver runs the inject, observe and restore sequence for one field and
// one payload at a time. It owns the field for the duration of a probe and
// is not safe for concurrent use.
type Driver struct {
	page        Page
	settleDelay time.Duration
	submit      bool
	logger      *slog.Logger
}

// NewDriver creates a driver. A non-positive settle delay falls back to
// duration.ProbeSettle; a nil logger to slog.Default().
func NewDriver(page Page, settleDelay time.Duration, submit bool, logger *slog.Logger) *Driver {
	if settleDelay <= 0 {
		settleDelay = duration.ProbeSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{page: page, settleDelay: settleDelay, submit: submit, logger: logger}
}

// Probe writes payload into the field, fires input, change and blur (and a
// prevented submit when the field sits in a form and submission is
// enabled), waits for the page to settle, reads the field back and
// restores it.
//
// Failures never escape as errors: they land in Outcome.Err so the caller
// can note them against the field and move on. The field is restored even
// when ctx is cancelled mid-probe.
func (d *Driver) Probe(ctx context.Context, field FieldElement, payload Payload) (out Outcome) {
	out.Payload = payload.Value
	out.Valid = true

	before, err := d.page.ReadField(ctx, field.Index)
	if err != nil {
		out.Err = fmt.Errorf("snapshot %s: %w", field.DisplayName(), err)
		return out
	}
	out.Original = before.Value
	// Dialogs opened before this probe belong to someone else.
	before.Dialogs = nil

	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), duration.ProbeRestore)
		defer cancel()
		if err := d.page.RestoreField(rctx, field.Index, before); err != nil {
			d.logger.Warn("restore failed",
				slog.String("field", field.DisplayName()),
				slog.String("error", err.Error()))
			if out.Err == nil {
				out.Err = fmt.Errorf("restore %s: %w", field.DisplayName(), err)
			}
		}
	}()

	if err := d.page.SetValue(ctx, field.Index, payload.Value); err != nil {
		out.Err = fmt.Errorf("set value: %w", err)
		return out
	}
	if err := d.page.DispatchSyntheticEvents(ctx, field.Index, d.submit && field.InForm); err != nil {
		out.Err = fmt.Errorf("dispatch events: %w", err)
		return out
	}

	select {
	case <-ctx.Done():
		out.Err = fmt.Errorf("settle: %w", ctx.Err())
		return out
	case <-time.After(d.settleDelay):
	}

	after, err := d.page.ReadField(ctx, field.Index)
	if err != nil {
		out.Err = fmt.Errorf("read back: %w", err)
		return out
	}
	out.observe(before, after)

	d.logger.Debug("probe",
		slog.String("field", field.DisplayName()),
		slog.String("payload", payload.Description),
		slog.Bool("sanitized", out.Sanitized),
		slog.Bool("encoded", out.Encoded),
		slog.Bool("rejected", out.Rejected()))
	return out
}
