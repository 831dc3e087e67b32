// Package events defines the messages a test run emits. Every event is a
// self-contained JSON object carrying its type, timestamp and run ID, so the
// same values serve the message host, JSONL output and hooks.
package events

import "time"

// EventType represents the type of output event.
type EventType string

const (
	// EventTypeAck acknowledges an inbound command.
	EventTypeAck EventType = "ack"
	// EventTypeStart indicates a test run has started.
	EventTypeStart EventType = "start"
	// EventTypeProgress reports one completed probe.
	EventTypeProgress EventType = "progress"
	// EventTypeResults carries the final results of a run.
	EventTypeResults EventType = "results"
	// EventTypeError indicates the run failed.
	EventTypeError EventType = "error"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	RunID() string
}

// BaseEvent contains common fields for all events.
// It is designed to be embedded in specific event types.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"timestamp"`
	Run  string    `json:"run_id"`
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// RunID returns the identifier of the run that produced this event.
func (e BaseEvent) RunID() string { return e.Run }

func newBase(t EventType, runID string) BaseEvent {
	return BaseEvent{Type: t, Time: time.Now().UTC(), Run: runID}
}
