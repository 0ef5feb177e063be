// Package cli holds process-level helpers for cmd/cli: interrupt handling
// and the mapping from a scan result to an exit code.
package cli

import (
	"errors"

	"github.com/waymap/waymap/pkg/config"
	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/scan"
)

// ExitCode maps the outcome of a run to a process exit code.
//
// A user decline is a clean stop and exits 0 even though it always follows
// a finding. A sample larger than the catalog is a usage error.
func ExitCode(sum scan.Summary, err error) int {
	switch {
	case errors.Is(err, finding.ErrInterrupted):
		return defaults.ExitInterrupted
	case errors.Is(err, finding.ErrUserAbort):
		return defaults.ExitSuccess
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrMissingRequired),
		errors.Is(err, finding.ErrInsufficientPayloads):
		return defaults.ExitUserError
	case errors.Is(err, finding.ErrDefinitionLoad):
		return defaults.ExitLoadError
	case err != nil:
		return defaults.ExitInternalError
	case len(sum.Findings()) > 0:
		return defaults.ExitFindings
	default:
		return defaults.ExitSuccess
	}
}
