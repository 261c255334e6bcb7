// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Source fetch metrics (sheets, html, ics, google calendar, object store)
	SourceRequestsTotal   *prometheus.CounterVec
	SourceDurationSeconds *prometheus.HistogramVec

	// Directory cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	TableRows        *prometheus.GaugeVec
	StoredRows       *prometheus.GaugeVec

	// Availability metrics
	AvailabilityTotal           *prometheus.CounterVec
	AvailabilityDurationSeconds prometheus.Histogram
	ScheduleEventsSkipped       *prometheus.CounterVec

	// Assistant metrics
	AssistantRequestsTotal   *prometheus.CounterVec
	AssistantDurationSeconds *prometheus.HistogramVec
	AssistantFallbackTotal   *prometheus.CounterVec
	AssistantTokensTotal     *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterKeys    *prometheus.GaugeVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Background job metrics
	JobDurationSeconds *prometheus.HistogramVec
	JobRunsTotal       *prometheus.CounterVec

	// Warmup metrics
	WarmupTasksTotal *prometheus.CounterVec
	WarmupDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		SourceRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_source_requests_total",
				Help: "Total number of upstream source requests by source and status",
			},
			[]string{"source", "status"}, // status: success, error, timeout, not_found
		),

		SourceDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campus_source_duration_seconds",
				Help:    "Upstream source request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}, // bounded by the 10s fetch timeout
			},
			[]string{"source"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_cache_hits_total",
				Help: "Total number of directory cache hits by table",
			},
			[]string{"table"},
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_cache_misses_total",
				Help: "Total number of directory cache misses by table",
			},
			[]string{"table"},
		),

		TableRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "campus_directory_rows",
				Help: "Rows in the in-memory directory table",
			},
			[]string{"table"},
		),

		StoredRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "campus_storage_rows",
				Help: "Rows in the persisted last-known-good copy",
			},
			[]string{"table"},
		),

		AvailabilityTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_availability_evaluations_total",
				Help: "Total number of availability evaluations by resulting status",
			},
			[]string{"status"}, // status: available, in_session, closed_holiday, closed_hours, fetch_error
		),

		AvailabilityDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campus_availability_duration_seconds",
				Help:    "Availability evaluation duration including the calendar fetch",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		),

		ScheduleEventsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_schedule_events_skipped_total",
				Help: "Calendar events skipped because their times could not be parsed",
			},
			[]string{"source"},
		),

		AssistantRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_assistant_requests_total",
				Help: "Total number of assistant requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, rejected
		),

		AssistantDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campus_assistant_duration_seconds",
				Help:    "Assistant request duration in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),

		AssistantFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_assistant_fallback_total",
				Help: "Total number of provider fallbacks",
			},
			[]string{"from", "to"},
		),

		AssistantTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_assistant_tokens_total",
				Help: "Tokens consumed by the assistant",
			},
			[]string{"provider", "type"}, // type: input, output
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_http_errors_total",
				Help: "Total HTTP errors by type and route",
			},
			[]string{"error_type", "route"}, // error_type: load_failure, rate_limit, bad_request, panic
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"},
		),

		RateLimiterKeys: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "campus_rate_limiter_active_keys",
				Help: "Number of keys currently tracked by a rate limiter",
			},
			[]string{"limiter"},
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_singleflight_dedup_total",
				Help: "Total number of requests that waited on an in-flight call instead of executing",
			},
			[]string{"module"},
		),

		JobDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campus_job_duration_seconds",
				Help:    "Background job duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"job"},
		),

		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_job_runs_total",
				Help: "Background job runs by job and status",
			},
			[]string{"job", "status"},
		),

		WarmupTasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_warmup_tasks_total",
				Help: "Total number of warmup tasks by table and status",
			},
			[]string{"table", "status"}, // status: success, error
		),

		WarmupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campus_warmup_duration_seconds",
				Help:    "Total duration of warmup process",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		),
	}
}

// RecordSourceRequest records an upstream fetch with status
func (m *Metrics) RecordSourceRequest(source, status string, duration time.Duration) {
	m.SourceRequestsTotal.WithLabelValues(source, status).Inc()
	m.SourceDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCacheHit records a directory cache hit
func (m *Metrics) RecordCacheHit(table string) {
	m.CacheHitsTotal.WithLabelValues(table).Inc()
}

// RecordCacheMiss records a directory cache miss
func (m *Metrics) RecordCacheMiss(table string) {
	m.CacheMissesTotal.WithLabelValues(table).Inc()
}

// SetTableSize sets the in-memory row count of a table
func (m *Metrics) SetTableSize(table string, rows int) {
	m.TableRows.WithLabelValues(table).Set(float64(rows))
}

// SetStoredRows sets the persisted row count of a table
func (m *Metrics) SetStoredRows(table string, rows int) {
	m.StoredRows.WithLabelValues(table).Set(float64(rows))
}

// RecordAvailability records one evaluation
func (m *Metrics) RecordAvailability(status string, duration time.Duration) {
	m.AvailabilityTotal.WithLabelValues(status).Inc()
	m.AvailabilityDurationSeconds.Observe(duration.Seconds())
}

// RecordEventsSkipped records calendar events dropped during decoding
func (m *Metrics) RecordEventsSkipped(source string, n int) {
	if n <= 0 {
		return
	}
	m.ScheduleEventsSkipped.WithLabelValues(source).Add(float64(n))
}

// RecordAssistant records an assistant request
func (m *Metrics) RecordAssistant(provider, status string, duration time.Duration) {
	m.AssistantRequestsTotal.WithLabelValues(provider, status).Inc()
	m.AssistantDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordAssistantFallback records a switch from one provider to the next
func (m *Metrics) RecordAssistantFallback(from, to string) {
	m.AssistantFallbackTotal.WithLabelValues(from, to).Inc()
}

// RecordAssistantTokens records token usage for a provider
func (m *Metrics) RecordAssistantTokens(provider string, input, output int64) {
	m.AssistantTokensTotal.WithLabelValues(provider, "input").Add(float64(input))
	m.AssistantTokensTotal.WithLabelValues(provider, "output").Add(float64(output))
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterKeys sets the number of tracked keys for a limiter
func (m *Metrics) SetRateLimiterKeys(limiter string, n int) {
	m.RateLimiterKeys.WithLabelValues(limiter).Set(float64(n))
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordJob records a background job run
func (m *Metrics) RecordJob(job, status string, duration time.Duration) {
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
	m.JobDurationSeconds.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordWarmupTask records a warmup task completion
func (m *Metrics) RecordWarmupTask(table, status string) {
	m.WarmupTasksTotal.WithLabelValues(table, status).Inc()
}

// RecordWarmupDuration records total warmup duration
func (m *Metrics) RecordWarmupDuration(duration time.Duration) {
	m.WarmupDuration.Observe(duration.Seconds())
}
