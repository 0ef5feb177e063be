package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/scan"
)

// Console prints scan progress for a human reader. In silent mode only the
// finding lines are written.
type Console struct {
	mu           sync.Mutex
	w            io.Writer
	backendLabel string
	title        cases.Caser
}

var _ scan.Reporter = (*Console)(nil)

// NewConsole returns a Console writing to w. kind selects the wording of
// the backend line.
func NewConsole(w io.Writer, kind string) *Console {
	label := "Backend DBMS"
	if kind == defaults.KindCMDI {
		label = "Backend OS"
	}
	return &Console{
		w:            w,
		backendLabel: label,
		title:        cases.Title(language.English),
	}
}

func (c *Console) line(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(c.w, style.Render(fmt.Sprintf(format, args...)))
}

// ScanStarted prints the target count and run ID.
func (c *Console) ScanStarted(runID string, targets int) {
	if IsSilent() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %d target(s) %s\n",
		MutedStyle.Render("[•] Scanning"), targets, MutedStyle.Render("run "+runID))
}

// URLStarted prints the URL about to be tested and its position.
func (c *Console) URLStarted(url string, index, total int) {
	if IsSilent() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w)
	fmt.Fprintf(c.w, "%s %s\n", URLStyle.Render("[•] Testing URL: "+url), MutedStyle.Render(fmt.Sprintf("[%d/%d]", index+1, total)))
}

// TechDetected prints the web technology identified from headers.
func (c *Console) TechDetected(tech string) {
	if IsSilent() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(TechStyle, "[•] Web Technology: %s", tech)
}

// Vulnerable prints a finding. It is written even in silent mode.
func (c *Console) Vulnerable(f finding.Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n",
		VulnStyle.Render(Icon("[★]", "[*]")+" Vulnerable URL found: "+f.Target),
		SeverityStyle(f.Severity).Render("["+string(f.Severity)+"]"))
	c.line(DetailStyle, "[•] Vulnerable Parameter: %s", f.Parameter)
	c.line(DetailStyle, "[•] Payload: %s", f.Payload)
	c.line(BackendStyle, "[•] %s: %s", c.backendLabel, f.Backend)
}

// Exhausted reports a URL with no matching payload.
func (c *Console) Exhausted(url string) {
	if IsSilent() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(FailStyle, "[×] No vulnerabilities found on: %s", url)
}

// URLFinished prints per-URL probe counts and elapsed time.
func (c *Console) URLFinished(r scan.URLReport) {
	if IsSilent() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(MutedStyle, "[•] Finished %s (%d probes, %d failed, %s)",
		r.URL, r.Probes, r.Failures, r.Finished.Sub(r.Started).Round(time.Millisecond))
}

// ScanFinished prints why the scan stopped, if it stopped early, and the
// run summary.
func (c *Console) ScanFinished(s scan.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch s.Reason {
	case scan.ReasonDeclined:
		c.line(FailStyle, "[•] Stopping further scans as per user's decision.")
	case scan.ReasonInterrupted:
		fmt.Fprintln(c.w)
		c.line(FailStyle, "[!] Scan interrupted by user. Exiting cleanly...")
	}
	if IsSilent() {
		return
	}

	fmt.Fprintln(c.w)
	fmt.Fprintf(c.w, "%s %d/%d URLs tested, %d vulnerable %s\n",
		SummaryStyle.Render("[•] Scan "+c.title.String(string(s.Outcome))+":"),
		len(s.URLs), s.Targets, len(s.Findings()),
		MutedStyle.Render("("+s.Duration().Round(time.Millisecond).String()+")"))
}
