// Package scan drives a multi-URL injection scan.
//
// A Session visits target URLs one at a time. For each URL it samples
// payloads, hands them to a Prober and consumes results in completion
// order. The first vulnerable result decides the URL; the first finding of
// the whole run triggers a single continue/stop prompt whose answer holds
// for every later URL.
//
// Run returns finding.ErrUserAbort when the user declines to continue and
// finding.ErrInterrupted when its context is cancelled. Both are control
// signals; the Summary is complete in either case.
package scan
