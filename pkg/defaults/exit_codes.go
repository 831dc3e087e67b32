package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean exit, no issues found
	ExitFindings      = 1 // At least one vulnerable field
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitNetworkError  = 3 // Browser launch or page load failure
	ExitInternalError = 4 // Unexpected internal error
)
