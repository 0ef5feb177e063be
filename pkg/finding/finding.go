package finding

import "time"

// Finding is the reported record of a vulnerable URL: the first completed
// probe whose response matched a backend signature.
type Finding struct {
	RunID      string    `json:"run_id"`
	URL        string    `json:"url"`
	Target     string    `json:"target"`
	Parameter  string    `json:"parameter"`
	Payload    string    `json:"payload"`
	Backend    string    `json:"backend"`
	Tech       string    `json:"tech,omitempty"`
	Severity   Severity  `json:"severity"`
	StatusCode int       `json:"status_code,omitzero"`
	BodyHash   string    `json:"body_hash,omitempty"`
	FoundAt    time.Time `json:"found_at"`
}
