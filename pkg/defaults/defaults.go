// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for runtime configuration defaults.
//
// Usage:
//
//	cfg.Concurrency = defaults.Concurrency
//	cfg.SampleSize = defaults.SampleSize
//
// DO NOT use hardcoded values like `Concurrency: 5` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

// Version is the current waymap version
const Version = "1.1.0"

// ToolName is used for service names, user agents and metric prefixes.
const ToolName = "waymap"

// ============================================================================
// SCAN SETTINGS
// ============================================================================
//
// Values governing how many payloads each URL receives and how many of
// them run at once.
// ============================================================================

const (
	// SampleSize is the number of payloads drawn per URL (10)
	SampleSize = 10

	// Concurrency is the number of probes in flight per URL (5)
	Concurrency = 5

	// ConcurrencyMax caps user-supplied concurrency (50)
	ConcurrencyMax = 50

	// RateLimitNone disables the probe rate limiter (0)
	RateLimitNone = 0
)

// ============================================================================
// SCAN KINDS
// ============================================================================

const (
	// KindSQL probes for SQL injection using DBMS error signatures.
	KindSQL = "sql"

	// KindCMDI probes for OS command injection using shell output signatures.
	KindCMDI = "cmdi"
)

// Kinds lists the supported scan kinds in display order.
var Kinds = []string{KindSQL, KindCMDI}

// ============================================================================
// HTTP SETTINGS
// ============================================================================

const (
	// MaxBodySize bounds how much of a probe response is read (1MB)
	MaxBodySize int64 = 1024 * 1024

	// MaxConnsPerHost bounds pooled connections per target host (25)
	MaxConnsPerHost = 25

	// MaxIdleConns bounds idle pooled connections overall (100)
	MaxIdleConns = 100

	// UAMinimal is sent when no user-agent list is available
	UAMinimal = ToolName + "/" + Version
)

// ============================================================================
// OBSERVABILITY
// ============================================================================

const (
	// MetricsPath is where the Prometheus handler is mounted
	MetricsPath = "/metrics"

	// OTLPEndpoint is the conventional collector gRPC address
	OTLPEndpoint = "localhost:4317"

	// EnvPrefix prefixes every environment override (WAYMAP_CONCURRENCY, ...)
	EnvPrefix = "WAYMAP_"
)
