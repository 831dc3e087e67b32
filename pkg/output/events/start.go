package events

import "github.com/fieldprobe/fieldprobe/pkg/inputvalidation"

// StartEvent is emitted once fields are enumerated and the plan is known.
type StartEvent struct {
	BaseEvent
	Target         string   `json:"target"`
	CatalogVersion string   `json:"catalog_version"`
	Categories     []string `json:"categories"`
	TotalFields    int      `json:"total_fields"`
	TotalProbes    int      `json:"total_probes"`
}

// NewStart builds a StartEvent from a freshly prepared run.
func NewStart(run *inputvalidation.TestRun) *StartEvent {
	cats := make([]string, len(run.Categories))
	for i, c := range run.Categories {
		cats[i] = c.String()
	}
	return &StartEvent{
		BaseEvent:      newBase(EventTypeStart, run.ID),
		Target:         run.URL,
		CatalogVersion: run.CatalogVersion,
		Categories:     cats,
		TotalFields:    run.TotalFields,
		TotalProbes:    run.TotalProbes,
	}
}
