package events

import (
	"errors"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// Error kinds.
const (
	KindEnumerate  = "enumerate"
	KindNoFields   = "no_fields"
	KindCancelled  = "cancelled"
	KindSystemPage = "system_page"
	KindCommand    = "command"
	KindInternal   = "internal"
)

// ErrorEvent reports a run that could not produce results.
type ErrorEvent struct {
	BaseEvent
	Error string `json:"error"`
	Kind  string `json:"error_kind"`
}

// NewError builds an error message and classifies err.
func NewError(runID string, err error) *ErrorEvent {
	return &ErrorEvent{
		BaseEvent: newBase(EventTypeError, runID),
		Error:     err.Error(),
		Kind:      Kind(err),
	}
}

// Kind maps err onto one of the error kinds. Open failures arrive wrapped
// in ErrEnumerate, so the more specific causes are checked first.
func Kind(err error) string {
	switch {
	case errors.Is(err, inputvalidation.ErrSystemPage):
		return KindSystemPage
	case errors.Is(err, inputvalidation.ErrNoFields):
		return KindNoFields
	case errors.Is(err, inputvalidation.ErrCancelled):
		return KindCancelled
	case errors.Is(err, inputvalidation.ErrEnumerate):
		return KindEnumerate
	default:
		return KindInternal
	}
}
