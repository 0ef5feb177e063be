package scan

import "github.com/waymap/waymap/pkg/finding"

// Reporter receives scan progress. Calls come from the session goroutine
// only, in scan order.
type Reporter interface {
	ScanStarted(runID string, targets int)
	URLStarted(url string, index, total int)
	TechDetected(tech string)
	Vulnerable(f finding.Finding)
	Exhausted(url string)
	URLFinished(r URLReport)
	ScanFinished(s Summary)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) ScanStarted(string, int) {}
func (NopReporter) URLStarted(string, int, int) {}
func (NopReporter) TechDetected(string) {}
func (NopReporter) Vulnerable(finding.Finding) {}
func (NopReporter) Exhausted(string) {}
func (NopReporter) URLFinished(URLReport) {}
func (NopReporter) ScanFinished(Summary) {}

type multiReporter []Reporter

// Reporters fans every call out to each non-nil reporter in order.
func Reporters(rs ...Reporter) Reporter {
	out := make(multiReporter, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiReporter) ScanStarted(runID string, targets int) {
	for _, r := range m {
		r.ScanStarted(runID, targets)
	}
}

func (m multiReporter) URLStarted(url string, index, total int) {
	for _, r := range m {
		r.URLStarted(url, index, total)
	}
}

func (m multiReporter) TechDetected(tech string) {
	for _, r := range m {
		r.TechDetected(tech)
	}
}

func (m multiReporter) Vulnerable(f finding.Finding) {
	for _, r := range m {
		r.Vulnerable(f)
	}
}

func (m multiReporter) Exhausted(url string) {
	for _, r := range m {
		r.Exhausted(url)
	}
}

func (m multiReporter) URLFinished(rep URLReport) {
	for _, r := range m {
		r.URLFinished(rep)
	}
}

func (m multiReporter) ScanFinished(s Summary) {
	for _, r := range m {
		r.ScanFinished(s)
	}
}
