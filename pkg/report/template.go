package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/scan"
)

// DefaultTemplate is the text summary used when no template file is given.
const DefaultTemplate = `waymap scan {{ .Summary.RunID }}
{{ repeat 40 "=" }}
Outcome:  {{ .Summary.Outcome | toString | title }}{{ with .Summary.Reason }} ({{ . }}){{ end }}
Targets:  {{ len .Summary.URLs }}/{{ .Summary.Targets }} tested
Duration: {{ .Duration }}
Tech:     {{ .Summary.Tech | default "n/a" }}
{{ if .Findings }}
Findings ({{ len .Findings }}):
{{- range .Findings }}
  {{ severityIcon .Severity }} [{{ .Severity | toString | upper }}] {{ .Backend }} at {{ .URL }}
      parameter: {{ .Parameter }}
      payload:   {{ .Payload }}
{{- end }}
{{ else }}
No vulnerabilities found.
{{ end -}}
`

// TemplateData is what templates are executed against.
type TemplateData struct {
	Summary   scan.Summary
	Findings  []finding.Finding
	Duration  time.Duration
	Generated time.Time
	Version   string
}

// Template buffers the final summary and renders it on Close.
type Template struct {
	mu      sync.Mutex
	w       io.Writer
	tmpl    *template.Template
	summary *scan.Summary
}

var _ scan.Reporter = (*Template)(nil)

// ParseTemplate parses text with sprig and waymap helper functions.
func ParseTemplate(name, text string) (*template.Template, error) {
	funcMap := sprig.TxtFuncMap()
	funcMap["severityIcon"] = severityIcon

	tmpl, err := template.New(name).Funcs(funcMap).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("report: parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// NewTemplate renders into w using the template file at path, or
// DefaultTemplate when path is empty.
func NewTemplate(w io.Writer, path string) (*Template, error) {
	name, text := defaults.ToolName, DefaultTemplate
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("report: read template: %w", err)
		}
		name, text = path, string(content)
	}
	tmpl, err := ParseTemplate(name, text)
	if err != nil {
		return nil, err
	}
	return &Template{w: w, tmpl: tmpl}, nil
}

func (t *Template) ScanStarted(string, int) {}
func (t *Template) URLStarted(string, int, int) {}
func (t *Template) TechDetected(string) {}
func (t *Template) Vulnerable(finding.Finding) {}
func (t *Template) Exhausted(string) {}
func (t *Template) URLFinished(scan.URLReport) {}

func (t *Template) ScanFinished(s scan.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary = &s
}

// Render executes the template against s. Findings are listed most severe
// first, in discovery order within a severity.
func (t *Template) Render(w io.Writer, s scan.Summary) error {
	findings := s.Findings()
	slices.SortStableFunc(findings, func(a, b finding.Finding) int {
		return b.Severity.Score() - a.Severity.Score()
	})
	data := TemplateData{
		Summary:   s,
		Findings:  findings,
		Duration:  s.Duration().Round(time.Millisecond),
		Generated: time.Now(),
		Version:   defaults.Version,
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("report: execute template: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("report: write template output: %w", err)
	}
	return nil
}

// Close renders the buffered summary, if the scan finished, and closes the
// writer when it is an io.Closer.
func (t *Template) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.summary != nil {
		err = t.Render(t.w, *t.summary)
	}
	if c, ok := t.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("report: close: %w", cerr)
		}
	}
	return err
}

func severityIcon(s finding.Severity) string {
	switch finding.Severity(strings.ToLower(string(s))) {
	case finding.Critical:
		return "!!"
	case finding.High:
		return "! "
	case finding.Medium:
		return "~ "
	default:
		return "- "
	}
}
