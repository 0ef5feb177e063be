package scan

import "errors"

// Sentinel errors for session construction and misuse.
// Callers should use errors.Is() to check for these.
var (
	// ErrNoProber indicates Config.Prober was nil.
	ErrNoProber = errors.New("scan: no prober configured")

	// ErrNoSampler indicates Config.Sampler was nil.
	ErrNoSampler = errors.New("scan: no payload sampler configured")

	// ErrInvalidSeverity indicates Config.Severity is not a known level.
	ErrInvalidSeverity = errors.New("scan: invalid finding severity")

	// ErrAlreadyRunning indicates Run was called while another Run on the
	// same Session was in progress.
	ErrAlreadyRunning = errors.New("scan: session already running")
)
