package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/waymap/waymap/pkg/finding"
)

// Color palette
var (
	Primary = lipgloss.Color("#7D56F4") // Purple - brand color

	// Severity colors (matching OWASP/Nuclei standards)
	CriticalColor = lipgloss.Color("#FF0000")
	HighColor     = lipgloss.Color("#FF6B6B")
	MediumColor   = lipgloss.Color("#FFD93D")
	LowColor      = lipgloss.Color("#6BCB77")
	InfoColor     = lipgloss.Color("#4D96FF")

	// Status colors
	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
	Accent  = lipgloss.Color("#C678DD") // Magenta - technology line
	Bright  = lipgloss.Color("#FAFAFA")
)

// Pre-configured styles
var (
	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Per-URL markers
	URLStyle = lipgloss.NewStyle().
			Foreground(Warning)

	TechStyle = lipgloss.NewStyle().
			Foreground(Accent)

	// Finding lines
	VulnStyle = lipgloss.NewStyle().
			Foreground(Bright).
			Bold(true)

	DetailStyle = lipgloss.NewStyle().
			Foreground(Success)

	BackendStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	FailStyle = lipgloss.NewStyle().
			Foreground(Error)

	PromptStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SummaryStyle = lipgloss.NewStyle().
			Foreground(Bright).
			Bold(true)
)

// SeverityStyle returns the style for a severity level.
func SeverityStyle(s finding.Severity) lipgloss.Style {
	switch s {
	case finding.Critical:
		return lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	case finding.High:
		return lipgloss.NewStyle().Foreground(HighColor).Bold(true)
	case finding.Medium:
		return lipgloss.NewStyle().Foreground(MediumColor)
	case finding.Low:
		return lipgloss.NewStyle().Foreground(LowColor)
	default:
		return lipgloss.NewStyle().Foreground(InfoColor)
	}
}
