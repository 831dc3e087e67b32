package events

// Ack statuses.
const (
	AckReceived = "received"
	AckBusy     = "busy"
)

// AckEvent answers an inbound command immediately.
type AckEvent struct {
	BaseEvent
	Status string `json:"status"`
}

// NewAck builds an acknowledgment.
func NewAck(runID, status string) *AckEvent {
	return &AckEvent{BaseEvent: newBase(EventTypeAck, runID), Status: status}
}
