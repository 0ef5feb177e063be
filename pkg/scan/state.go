package scan

import (
	"time"

	"github.com/waymap/waymap/pkg/finding"
)

// Decision is the run-scoped answer to the continue prompt.
type Decision int

const (
	DecisionUnset Decision = iota
	DecisionContinue
	DecisionStop
)

func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionStop:
		return "stop"
	default:
		return "unset"
	}
}

// State is the mutable part of a run. Only the session goroutine touches it.
type State struct {
	// DetectedTech is set from the first vulnerable response and never
	// changes afterwards. Empty means not yet detected.
	DetectedTech string
	Decision     Decision
}

// Phase is a session state machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProbing
	PhaseVulnerableFound
	PhaseExhausted
	PhaseAborted
	PhaseDone
)

var phaseNames = [...]string{
	PhaseIdle:            "IDLE",
	PhaseProbing:         "PROBING",
	PhaseVulnerableFound: "VULNERABLE_FOUND",
	PhaseExhausted:       "EXHAUSTED",
	PhaseAborted:         "ABORTED",
	PhaseDone:            "DONE",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "UNKNOWN"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition can follow p.
func (p Phase) Terminal() bool {
	return p == PhaseAborted || p == PhaseDone
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeAborted Outcome = "aborted"
)

// Abort reasons. A completed run has no reason.
const (
	ReasonDeclined    = "declined"
	ReasonInterrupted = "interrupted"
)

// URL statuses recorded in URLReport.
const (
	StatusVulnerable = "vulnerable"
	StatusExhausted  = "exhausted"
)

// URLReport describes one fully processed URL.
type URLReport struct {
	URL      string           `json:"url"`
	Status   string           `json:"status"`
	Finding  *finding.Finding `json:"finding,omitempty"`
	Probes   int              `json:"probes"`
	Failures int              `json:"failures"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
}

// Vulnerable reports whether the URL produced a finding.
func (r URLReport) Vulnerable() bool {
	return r.Status == StatusVulnerable
}

// Summary is the result of one Session.Run.
type Summary struct {
	RunID    string      `json:"run_id"`
	Outcome  Outcome     `json:"outcome"`
	Reason   string      `json:"reason,omitempty"`
	Tech     string      `json:"tech,omitempty"`
	Targets  int         `json:"targets"`
	URLs     []URLReport `json:"urls"`
	Started  time.Time   `json:"started"`
	Finished time.Time   `json:"finished"`
}

// Findings returns the findings of every vulnerable URL, in scan order.
func (s Summary) Findings() []finding.Finding {
	var out []finding.Finding
	for _, u := range s.URLs {
		if u.Finding != nil {
			out = append(out, *u.Finding)
		}
	}
	return out
}

// Duration returns the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// Interrupted reports whether the run was cut short by its context.
func (s Summary) Interrupted() bool {
	return s.Reason == ReasonInterrupted
}
