// Package report writes machine-readable scan output: a JSON Lines stream
// of completed URLs and findings, and a Go text/template rendering of the
// final summary.
package report
