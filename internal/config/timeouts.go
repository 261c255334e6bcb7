package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead bounds reading a request, including the /ask form body.
	HTTPRead = 10 * time.Second

	// HTTPWrite must cover AssistantRequest plus rendering.
	HTTPWrite = 75 * time.Second

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second

	// PageRender bounds one dashboard page, which may load a directory
	// table and query the calendar.
	PageRender = 20 * time.Second
)

// Upstream timeouts
const (
	// FetchRequest is the default bound on one directory or calendar fetch.
	FetchRequest = 10 * time.Second

	// FetchRetryInitial is the first backoff delay when retries are enabled.
	FetchRetryInitial = time.Second

	// AssistantRequest bounds one /ask call across every provider fallback.
	AssistantRequest = 60 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second
)

// Cache lifetimes
const (
	// DirectoryCacheTTL is how long a loaded table is served before the
	// next access reloads it.
	DirectoryCacheTTL = 5 * time.Minute

	// CalendarCacheTTL is how long one day's calendar intervals are reused.
	CalendarCacheTTL = time.Minute

	// StoreMaxAge is how old the SQLite copy may be and still warm a cold
	// process; older rows are removed by the cleanup job.
	StoreMaxAge = 7 * 24 * time.Hour
)

// Background jobs
const (
	// MetricsUpdateInterval is how often table size gauges are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// SnapshotLockTTL is the lease of the snapshot upload lock.
	SnapshotLockTTL = 5 * time.Minute

	// WarmupGracePeriod is how long /readyz waits for warmup before
	// reporting ready anyway.
	WarmupGracePeriod = 60 * time.Second

	// WarmupTable bounds the load of one table during warmup.
	WarmupTable = 30 * time.Second
)

// GracefulShutdown is the default time allowed for in-flight requests.
const GracefulShutdown = 30 * time.Second
