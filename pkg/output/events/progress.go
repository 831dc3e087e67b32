package events

import (
	"math"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// StartingField is the currentField of the progress message sent before
// the first probe.
const StartingField = "Starting test..."

// ProgressEvent reports a completed probe. Progress is a whole percentage.
type ProgressEvent struct {
	BaseEvent
	Progress     int    `json:"progress"`
	CurrentField string `json:"currentField"`
	Completed    int    `json:"completed"`
	Total        int    `json:"total"`
}

// NewProgress converts a runner progress report.
func NewProgress(runID string, p inputvalidation.Progress) *ProgressEvent {
	return &ProgressEvent{
		BaseEvent:    newBase(EventTypeProgress, runID),
		Progress:     int(math.Round(p.Percent)),
		CurrentField: p.CurrentField,
		Completed:    p.Completed,
		Total:        p.Total,
	}
}

// NewStarting is the zero-progress message sent right after the ack.
func NewStarting(runID string) *ProgressEvent {
	return &ProgressEvent{
		BaseEvent:    newBase(EventTypeProgress, runID),
		CurrentField: StartingField,
	}
}
