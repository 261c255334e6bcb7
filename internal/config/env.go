// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "CAMPUS_PORT"
	EnvLogLevel        = "CAMPUS_LOG_LEVEL"
	EnvShutdownTimeout = "CAMPUS_SHUTDOWN_TIMEOUT"
	EnvServerName      = "CAMPUS_SERVER_NAME"
	EnvTimezone        = "CAMPUS_TIMEZONE"

	// Data
	EnvDataDir     = "CAMPUS_DATA_DIR"
	EnvCacheTTL    = "CAMPUS_CACHE_TTL"
	EnvStoreMaxAge = "CAMPUS_STORE_MAX_AGE"

	// Fetching
	EnvFetchTimeout = "CAMPUS_FETCH_TIMEOUT"
	EnvFetchRetries = "CAMPUS_FETCH_RETRIES"
	EnvFetchRPM     = "CAMPUS_FETCH_RPM"

	// Directory sources, one group per table. %s is the upper-case table
	// name, e.g. CAMPUS_FACULTY_SHEET_ID.
	EnvSourceSheetID   = "CAMPUS_%s_SHEET_ID"
	EnvSourceSheetGID  = "CAMPUS_%s_SHEET_GID"
	EnvSourceURL       = "CAMPUS_%s_URL"
	EnvSourceSelector  = "CAMPUS_%s_SELECTOR"
	EnvSourceFile      = "CAMPUS_%s_FILE"
	EnvSourceObjectKey = "CAMPUS_%s_OBJECT_KEY"

	// Calendar
	EnvCalendarMode     = "CAMPUS_CALENDAR_MODE"
	EnvCalendarID       = "CAMPUS_GOOGLE_CALENDAR_ID"
	EnvCalendarAPIKey   = "CAMPUS_GOOGLE_API_KEY"
	EnvCalendarBaseURL  = "CAMPUS_GOOGLE_CALENDAR_BASE_URL"
	EnvICSURL           = "CAMPUS_ICS_URL"
	EnvTimetableFile    = "CAMPUS_TIMETABLE_FILE"
	EnvCalendarCacheTTL = "CAMPUS_CALENDAR_CACHE_TTL"

	// Operating rules
	EnvHolidayWeekday = "CAMPUS_HOLIDAY_WEEKDAY"
	EnvOpenHour       = "CAMPUS_OPEN_HOUR"
	EnvCloseHour      = "CAMPUS_CLOSE_HOUR"
	EnvCloseHourOpen  = "CAMPUS_CLOSE_HOUR_OPEN"

	// Background jobs
	EnvRefreshCron   = "CAMPUS_REFRESH_CRON"
	EnvCleanupCron   = "CAMPUS_CLEANUP_CRON"
	EnvSnapshotCron  = "CAMPUS_SNAPSHOT_CRON"
	EnvWarmupTables  = "CAMPUS_WARMUP_TABLES"
	EnvWarmupTimeout = "CAMPUS_WARMUP_TIMEOUT"

	// Assistant
	EnvLLMProviders       = "CAMPUS_LLM_PROVIDERS"
	EnvGeminiAPIKey       = "CAMPUS_GEMINI_API_KEY"
	EnvGroqAPIKey         = "CAMPUS_GROQ_API_KEY"
	EnvCerebrasAPIKey     = "CAMPUS_CEREBRAS_API_KEY"
	EnvGeminiModels       = "CAMPUS_GEMINI_MODELS"
	EnvGroqModels         = "CAMPUS_GROQ_MODELS"
	EnvCerebrasModels     = "CAMPUS_CEREBRAS_MODELS"
	EnvLLMMaxOutputTokens = "CAMPUS_LLM_MAX_OUTPUT_TOKENS"
	EnvLLMTimeout         = "CAMPUS_LLM_TIMEOUT"

	// Rate limits
	EnvAskRateBurst  = "CAMPUS_ASK_RATE_BURST"
	EnvAskRateRefill = "CAMPUS_ASK_RATE_REFILL"
	EnvAskRateDaily  = "CAMPUS_ASK_RATE_DAILY"

	// R2 object store
	EnvR2AccountID       = "CAMPUS_R2_ACCOUNT_ID"
	EnvR2Endpoint        = "CAMPUS_R2_ENDPOINT"
	EnvR2AccessKeyID     = "CAMPUS_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "CAMPUS_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "CAMPUS_R2_BUCKET_NAME"
	EnvR2SnapshotKey     = "CAMPUS_R2_SNAPSHOT_KEY"
	EnvR2LockTTL         = "CAMPUS_R2_LOCK_TTL"

	// Sentry
	EnvSentryDSN         = "CAMPUS_SENTRY_DSN"
	EnvSentryToken       = "CAMPUS_SENTRY_TOKEN"
	EnvSentryHost        = "CAMPUS_SENTRY_HOST"
	EnvSentryEnvironment = "CAMPUS_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "CAMPUS_SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "CAMPUS_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CAMPUS_BETTERSTACK_ENDPOINT"

	// Metrics auth
	EnvMetricsUsername = "CAMPUS_METRICS_USERNAME"
	EnvMetricsPassword = "CAMPUS_METRICS_PASSWORD"
)
