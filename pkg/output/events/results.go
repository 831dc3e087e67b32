package events

import "github.com/fieldprobe/fieldprobe/pkg/inputvalidation"

// ResultsEvent carries the per-field results of a finished run.
// Run keeps the full TestRun for writers that render reports.
type ResultsEvent struct {
	BaseEvent
	URL     string                        `json:"url"`
	Results []inputvalidation.FieldResult `json:"results"`
	Summary inputvalidation.Summary       `json:"summary"`
	Run     *inputvalidation.TestRun      `json:"-"`
}

// NewResults builds the results message for run.
func NewResults(run *inputvalidation.TestRun) *ResultsEvent {
	return &ResultsEvent{
		BaseEvent: newBase(EventTypeResults, run.ID),
		URL:       run.URL,
		Results:   run.Results,
		Summary:   run.Summary,
		Run:       run,
	}
}
