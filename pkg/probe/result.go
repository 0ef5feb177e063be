package probe

import (
	"net/http"
	"time"

	"github.com/waymap/waymap/pkg/metrics"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Matcher classifies a response body. *signatures.Store satisfies it.
type Matcher interface {
	Match(body string) (backend string, ok bool)
}

// Result is the outcome of one probe. Exactly one of two shapes: a response
// (Err nil, StatusCode set) or a network failure (Err is a
// *finding.NetworkProbeError and Vulnerable is false).
type Result struct {
	URL     string
	Payload string
	Target  string

	Vulnerable bool
	Backend    string

	Body       string
	Headers    map[string]string
	StatusCode int
	BodyHash   string
	Truncated  bool

	UserAgent string
	Duration  time.Duration
	Err       error
}

// Failed reports whether the probe never got a response.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Outcome returns the metric label for r.
func (r Result) Outcome() string {
	switch {
	case r.Failed():
		return metrics.OutcomeError
	case r.Vulnerable:
		return metrics.OutcomeVulnerable
	default:
		return metrics.OutcomeClean
	}
}
