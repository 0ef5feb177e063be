package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0   // Clean exit, including a user-declined stop
	ExitFindings      = 1   // At least one vulnerable URL reported
	ExitUserError     = 2   // Invalid arguments or configuration
	ExitLoadError     = 3   // Signature, payload or user-agent source failed to load
	ExitInternalError = 4   // Unexpected internal error
	ExitInterrupted   = 130 // SIGINT/SIGTERM, matching shell convention
)
