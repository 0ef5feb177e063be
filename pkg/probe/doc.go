// Package probe fires injection payloads at a URL and classifies each
// response against backend error signatures.
//
// A Dispatcher owns a bounded worker pool shared by every batch it runs, so
// the concurrency limit holds across URLs even while an abandoned batch is
// still draining. Results arrive in completion order on a channel buffered
// to the batch size; a consumer may stop reading at any point and the
// remaining probes finish without blocking.
package probe
