package probe

import "errors"

// Sentinel errors for dispatcher construction.
// Callers should use errors.Is() to check for these.
var (
	// ErrNoClient indicates Config.Client was nil.
	ErrNoClient = errors.New("probe: no HTTP client configured")

	// ErrNoMatcher indicates Config.Matcher was nil.
	ErrNoMatcher = errors.New("probe: no signature matcher configured")
)
