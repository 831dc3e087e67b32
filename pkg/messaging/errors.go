package messaging

import "errors"

// Sentinel errors for inbound commands.
var (
	// ErrUnknownAction indicates a command with an unsupported action.
	ErrUnknownAction = errors.New("unknown action")

	// ErrMalformedCommand indicates a line that is not a valid command.
	ErrMalformedCommand = errors.New("malformed command")
)
