package finding

import (
	"errors"
	"fmt"
)

// Sentinel errors for scan failure modes and control signals.
// Callers should use errors.Is() to check for these.
var (
	// ErrDefinitionLoad indicates a signature, payload, user-agent or
	// target source was unreadable or malformed. The scan cannot start.
	ErrDefinitionLoad = errors.New("finding: definition load failed")

	// ErrInsufficientPayloads indicates the payload catalog holds fewer
	// entries than the requested sample size.
	ErrInsufficientPayloads = errors.New("finding: insufficient payloads")

	// ErrNetworkProbe indicates a single probe failed at the network
	// layer. It never aborts a batch.
	ErrNetworkProbe = errors.New("finding: network probe failed")

	// ErrUserAbort signals that the user declined to continue after a
	// finding. It is a control signal, not a failure.
	ErrUserAbort = errors.New("finding: scan stopped by user")

	// ErrInterrupted signals that the operating environment interrupted
	// the scan (SIGINT/SIGTERM). It is a control signal, not a failure.
	ErrInterrupted = errors.New("finding: scan interrupted")
)

// DefinitionLoadError records which source failed to load and why.
type DefinitionLoadError struct {
	Source string
	Err    error
}

func (e *DefinitionLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: definition load failed", e.Source)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *DefinitionLoadError) Unwrap() error { return e.Err }

// Is makes every DefinitionLoadError match ErrDefinitionLoad.
func (e *DefinitionLoadError) Is(target error) bool {
	return target == ErrDefinitionLoad
}

// NewDefinitionLoadError wraps err for source.
func NewDefinitionLoadError(source string, err error) error {
	return &DefinitionLoadError{Source: source, Err: err}
}

// NetworkProbeError is the failure half of a probe outcome.
// Kind is a short classification such as "timeout" or "dns".
type NetworkProbeError struct {
	Target string
	Kind   string
	Err    error
}

func (e *NetworkProbeError) Error() string {
	return fmt.Sprintf("probe %s (%s): %v", e.Target, e.Kind, e.Err)
}

func (e *NetworkProbeError) Unwrap() error { return e.Err }

// Is makes every NetworkProbeError match ErrNetworkProbe.
func (e *NetworkProbeError) Is(target error) bool {
	return target == ErrNetworkProbe
}

// Timeout reports whether the probe hit its deadline.
func (e *NetworkProbeError) Timeout() bool {
	return e.Kind == "timeout"
}
