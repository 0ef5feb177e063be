package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/jsonutil"
	"github.com/waymap/waymap/pkg/scan"
)

// Record types written to the JSONL stream.
const (
	TypeScan    = "scan"
	TypeURL     = "url"
	TypeFinding = "finding"
	TypeSummary = "summary"
)

// Record is one JSONL line.
type Record struct {
	Type    string           `json:"type"`
	RunID   string           `json:"run_id"`
	Time    time.Time        `json:"time"`
	Targets int              `json:"targets,omitzero"`
	URL     *scan.URLReport  `json:"url,omitempty"`
	Finding *finding.Finding `json:"finding,omitempty"`
	Summary *scan.Summary    `json:"summary,omitempty"`
}

// JSONL streams records as each URL completes. Only fully resolved URLs are
// written, so an interrupted run leaves a valid file. Write failures are
// sticky: the first one is kept and later records are dropped.
type JSONL struct {
	mu     sync.Mutex
	enc    *jsonutil.LineEncoder
	closer io.Closer
	runID  string
	err    error
	now    func() time.Time
}

var _ scan.Reporter = (*JSONL)(nil)

// NewJSONL writes to w. If w is an io.Closer, Close closes it.
func NewJSONL(w io.Writer) *JSONL {
	j := &JSONL{enc: jsonutil.NewLineEncoder(w), now: time.Now}
	if c, ok := w.(io.Closer); ok {
		j.closer = c
	}
	return j
}

// CreateJSONL creates (or truncates) path and streams records into it.
func CreateJSONL(path string) (*JSONL, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create %s: %w", path, err)
	}
	return NewJSONL(f), nil
}

func (j *JSONL) write(r Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	r.RunID = j.runID
	r.Time = j.now()
	if err := j.enc.Encode(r); err != nil {
		j.err = fmt.Errorf("report: write %s record: %w", r.Type, err)
	}
}

func (j *JSONL) ScanStarted(runID string, targets int) {
	j.mu.Lock()
	j.runID = runID
	j.mu.Unlock()
	j.write(Record{Type: TypeScan, Targets: targets})
}

func (j *JSONL) URLStarted(string, int, int) {}
func (j *JSONL) TechDetected(string) {}
func (j *JSONL) Vulnerable(finding.Finding) {}
func (j *JSONL) Exhausted(string) {}

func (j *JSONL) URLFinished(r scan.URLReport) {
	if r.Finding != nil {
		f := *r.Finding
		j.write(Record{Type: TypeFinding, Finding: &f})
	}
	rep := r
	rep.Finding = nil
	j.write(Record{Type: TypeURL, URL: &rep})
}

func (j *JSONL) ScanFinished(s scan.Summary) {
	sum := s
	j.write(Record{Type: TypeSummary, Summary: &sum})
}

// Err returns the first write failure, if any.
func (j *JSONL) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Close closes the underlying file and reports the first write failure.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var closeErr error
	if j.closer != nil {
		closeErr = j.closer.Close()
		j.closer = nil
	}
	if j.err != nil {
		return j.err
	}
	if closeErr != nil {
		return fmt.Errorf("report: close: %w", closeErr)
	}
	return nil
}
