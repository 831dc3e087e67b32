package dispatcher

import (
	"context"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Reporter turns runner callbacks into events on a dispatcher.
type Reporter struct {
	d     *Dispatcher
	runID string
}

var _ inputvalidation.Reporter = (*Reporter)(nil)

// NewReporter returns a Reporter for the run identified by runID. The ID is
// used for events sent before the run exists, such as an enumeration error.
func NewReporter(d *Dispatcher, runID string) *Reporter {
	return &Reporter{d: d, runID: runID}
}

// OnStart dispatches a start event.
func (r *Reporter) OnStart(ctx context.Context, run *inputvalidation.TestRun) {
	r.runID = run.ID
	_ = r.d.Dispatch(ctx, events.NewStart(run))
}

// OnProgress dispatches a progress event.
func (r *Reporter) OnProgress(ctx context.Context, p inputvalidation.Progress) {
	_ = r.d.Dispatch(ctx, events.NewProgress(r.runID, p))
}

// OnComplete dispatches the results.
func (r *Reporter) OnComplete(ctx context.Context, run *inputvalidation.TestRun) {
	_ = r.d.Dispatch(ctx, events.NewResults(run))
}

// OnError dispatches an error event. The run's context may already be
// cancelled, so delivery does not depend on it.
func (r *Reporter) OnError(ctx context.Context, err error) {
	_ = r.d.Dispatch(context.WithoutCancel(ctx), events.NewError(r.runID, err))
}
