// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	client := httpclient.New(httpclient.Config{Timeout: duration.ProbeTimeout})
//	ctx, cancel := context.WithTimeout(ctx, duration.ShutdownGrace)
//
// DO NOT use hardcoded time.Duration values like `10 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// PROBE TIMEOUTS
// ============================================================================

const (
	// ProbeTimeout is the fixed per-request deadline for one probe (10s)
	ProbeTimeout = 10 * time.Second

	// DialTimeout bounds TCP connection establishment (10s)
	DialTimeout = 10 * time.Second

	// TLSHandshake bounds the TLS handshake (10s)
	TLSHandshake = 10 * time.Second

	// KeepAlive is the TCP keep-alive period for pooled connections (30s)
	KeepAlive = 30 * time.Second

	// IdleConnTimeout is how long idle connections stay pooled (90s)
	IdleConnTimeout = 90 * time.Second
)

// ============================================================================
// SHUTDOWN
// ============================================================================

const (
	// ShutdownGrace is how long a second interrupt is awaited before a
	// forced exit (5s)
	ShutdownGrace = 5 * time.Second

	// MetricsShutdown bounds the metrics server shutdown (5s)
	MetricsShutdown = 5 * time.Second

	// TraceShutdown bounds the span exporter flush (5s)
	TraceShutdown = 5 * time.Second

	// MetricsReadTimeout bounds request reads on the metrics server (5s)
	MetricsReadTimeout = 5 * time.Second

	// MetricsWriteTimeout bounds response writes on the metrics server (10s)
	MetricsWriteTimeout = 10 * time.Second

	// ExporterConnect bounds OTLP exporter construction (10s)
	ExporterConnect = 10 * time.Second
)
