// Package ui renders waymap's human-facing console output.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/waymap/waymap/pkg/defaults"
)

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetSilent enables or disables silent mode (banner and info lines suppressed)
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// Separator line (ffuf-style box)
const bannerSeparator = "________________________________________________"

// PrintBanner writes the banner and version to w unless silent.
func PrintBanner(w io.Writer) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(w, BannerStyle.Render(bannerSeparator))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s %s\n", BannerStyle.Render(defaults.ToolName), VersionStyle.Render("v"+defaults.Version+" - injection scanner"))
	fmt.Fprintln(w, BannerStyle.Render(bannerSeparator))
	fmt.Fprintln(w)
}

// PrintError prints an error message (to stderr)
func PrintError(message string) {
	FprintError(os.Stderr, message)
}

// FprintError prints an error message to w.
func FprintError(w io.Writer, message string) {
	fmt.Fprintln(w, FailStyle.Render("[×] "+message))
}

// Prompt renders the continue question.
func Prompt(question string) string {
	return PromptStyle.Render("[?] " + question)
}
