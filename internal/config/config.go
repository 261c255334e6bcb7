// Package config provides application configuration management.
// It loads settings from CAMPUS_* environment variables (and a .env file
// when present), applies defaults, and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/garyellow/campus-assist-go/internal/availability"
	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/genai"
	"github.com/garyellow/campus-assist-go/internal/objectstore"
	"github.com/garyellow/campus-assist-go/internal/sentry"
	"github.com/garyellow/campus-assist-go/internal/timeutil"
)

// SourceType selects how a directory table is loaded.
type SourceType string

const (
	SourceNone   SourceType = ""
	SourceSheets SourceType = "sheets"
	SourceHTML   SourceType = "html"
	SourceFile   SourceType = "file"
	SourceObject SourceType = "object"
)

// SourceConfig locates one directory table.
type SourceConfig struct {
	Type      SourceType
	SheetID   string
	SheetGID  string
	URL       string
	Selector  string
	Path      string
	ObjectKey string
}

// CalendarMode selects the schedule source used by the evaluator.
type CalendarMode string

const (
	CalendarNone      CalendarMode = "none"
	CalendarGoogle    CalendarMode = "google"
	CalendarICS       CalendarMode = "ics"
	CalendarTimetable CalendarMode = "timetable"
)

// CalendarConfig holds the schedule source settings.
type CalendarConfig struct {
	Mode          CalendarMode
	CalendarID    string
	APIKey        string
	BaseURL       string // Google Calendar API base, for tests and proxies
	ICSURL        string
	TimetableFile string
	CacheTTL      time.Duration
}

// RulesConfig holds campus operating rules. Nil pointers disable a check.
type RulesConfig struct {
	HolidayWeekday *availability.Weekday
	OpenHour       *int
	CloseHour      *int
	CloseHourOpen  bool
}

// R2Config holds Cloudflare R2 settings. R2 is enabled when a bucket is set.
type R2Config struct {
	AccountID       string
	Endpoint        string // derived from AccountID when empty
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	SnapshotKey     string
	LockTTL         time.Duration
}

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string
	Timezone        string

	// Data Configuration
	DataDir     string        // Data directory for the SQLite copy
	CacheTTL    time.Duration // directory cache TTL (default: 5m)
	StoreMaxAge time.Duration // age limit of the SQLite copy (default: 7 days)

	// Fetch Configuration
	FetchTimeout time.Duration
	FetchRetries int
	FetchRPM     float64 // outbound requests per minute, 0 = unlimited

	// Directory sources, by table
	Sources map[directory.Kind]SourceConfig

	Calendar CalendarConfig
	Rules    RulesConfig

	// Background jobs
	RefreshCron   string
	CleanupCron   string
	SnapshotCron  string
	WarmupTables  string
	WarmupTimeout time.Duration

	// Assistant
	LLMProviders       []string
	GeminiAPIKey       string
	GroqAPIKey         string
	CerebrasAPIKey     string
	GeminiModels       []string
	GroqModels         []string
	CerebrasModels     []string
	LLMMaxOutputTokens int
	LLMTimeout         time.Duration

	// Assistant rate limit, per client IP
	AskRateBurst  float64
	AskRateRefill float64 // tokens per minute
	AskRateDaily  int     // 0 disables the daily quota

	R2 R2Config

	// Error tracking
	SentryDSN         string
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Log shipping
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsUsername string // Username for /metrics Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics Basic Auth (empty = no auth)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// fromEnv reads every key. Values that cannot be parsed at all are
// reported here; range checks belong to Validate.
func fromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServerName:      getEnv(EnvServerName, ""),
		Timezone:        getEnv(EnvTimezone, timeutil.DefaultTimezone),

		DataDir:     getEnv(EnvDataDir, getDefaultDataDir()),
		CacheTTL:    getDurationEnv(EnvCacheTTL, DirectoryCacheTTL),
		StoreMaxAge: getDurationEnv(EnvStoreMaxAge, StoreMaxAge),

		FetchTimeout: getDurationEnv(EnvFetchTimeout, FetchRequest),
		FetchRetries: getIntEnv(EnvFetchRetries, 0),
		FetchRPM:     getFloatEnv(EnvFetchRPM, 0),

		Sources: make(map[directory.Kind]SourceConfig, len(directory.Kinds)),

		Calendar: CalendarConfig{
			Mode:          CalendarMode(strings.ToLower(getEnv(EnvCalendarMode, ""))),
			CalendarID:    getEnv(EnvCalendarID, ""),
			APIKey:        getEnv(EnvCalendarAPIKey, ""),
			BaseURL:       getEnv(EnvCalendarBaseURL, ""),
			ICSURL:        getEnv(EnvICSURL, ""),
			TimetableFile: getEnv(EnvTimetableFile, ""),
			CacheTTL:      getDurationEnv(EnvCalendarCacheTTL, CalendarCacheTTL),
		},

		RefreshCron:   getEnv(EnvRefreshCron, "*/15 * * * *"),
		CleanupCron:   getEnv(EnvCleanupCron, "0 4 * * *"),
		SnapshotCron:  getEnv(EnvSnapshotCron, "0 */6 * * *"),
		WarmupTables:  getEnv(EnvWarmupTables, ""),
		WarmupTimeout: getDurationEnv(EnvWarmupTimeout, WarmupGracePeriod),

		LLMProviders:       getListEnv(EnvLLMProviders, nil),
		GeminiAPIKey:       getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:         getEnv(EnvGroqAPIKey, ""),
		CerebrasAPIKey:     getEnv(EnvCerebrasAPIKey, ""),
		GeminiModels:       getListEnv(EnvGeminiModels, nil),
		GroqModels:         getListEnv(EnvGroqModels, nil),
		CerebrasModels:     getListEnv(EnvCerebrasModels, nil),
		LLMMaxOutputTokens: getIntEnv(EnvLLMMaxOutputTokens, genai.DefaultMaxOutputTokens),
		LLMTimeout:         getDurationEnv(EnvLLMTimeout, AssistantRequest),

		AskRateBurst:  getFloatEnv(EnvAskRateBurst, 5),
		AskRateRefill: getFloatEnv(EnvAskRateRefill, 2),
		AskRateDaily:  getIntEnv(EnvAskRateDaily, 50),

		R2: R2Config{
			AccountID:       getEnv(EnvR2AccountID, ""),
			Endpoint:        getEnv(EnvR2Endpoint, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
			SnapshotKey:     getEnv(EnvR2SnapshotKey, "snapshots/directory.json.zst"),
			LockTTL:         getDurationEnv(EnvR2LockTTL, SnapshotLockTTL),
		},

		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}

	for _, kind := range directory.Kinds {
		src, err := sourceFromEnv(kind)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Sources[kind] = src
	}

	rules, err := rulesFromEnv()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Rules = rules

	if cfg.Calendar.Mode == "" {
		cfg.Calendar.Mode = inferCalendarMode(cfg.Calendar)
	}

	return cfg, errors.Join(errs...)
}

// sourceFromEnv reads the CAMPUS_<TABLE>_* group. At most one source
// may be set.
func sourceFromEnv(kind directory.Kind) (SourceConfig, error) {
	key := func(format string) string {
		return fmt.Sprintf(format, strings.ToUpper(string(kind)))
	}
	src := SourceConfig{
		SheetID:   getEnv(key(EnvSourceSheetID), ""),
		SheetGID:  getEnv(key(EnvSourceSheetGID), ""),
		URL:       getEnv(key(EnvSourceURL), ""),
		Selector:  getEnv(key(EnvSourceSelector), ""),
		Path:      getEnv(key(EnvSourceFile), ""),
		ObjectKey: getEnv(key(EnvSourceObjectKey), ""),
	}

	var set []SourceType
	if src.SheetID != "" {
		set = append(set, SourceSheets)
	}
	if src.URL != "" {
		set = append(set, SourceHTML)
	}
	if src.Path != "" {
		set = append(set, SourceFile)
	}
	if src.ObjectKey != "" {
		set = append(set, SourceObject)
	}
	switch len(set) {
	case 0:
		return src, nil
	case 1:
		src.Type = set[0]
		return src, nil
	default:
		return src, fmt.Errorf("%s: only one source may be set, got %v", kind, set)
	}
}

// rulesFromEnv reads the operating rules. "none" disables a rule; an
// unset key keeps the campus default (Sunday holiday, 7 AM to 5 PM).
func rulesFromEnv() (RulesConfig, error) {
	var errs []error
	rules := RulesConfig{
		CloseHourOpen: getBoolEnv(EnvCloseHourOpen, false),
	}

	if v := strings.TrimSpace(getEnv(EnvHolidayWeekday, "Sunday")); !strings.EqualFold(v, "none") {
		d, err := availability.ParseWeekday(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvHolidayWeekday, err))
		} else {
			rules.HolidayWeekday = &d
		}
	}

	var err error
	if rules.OpenHour, err = getOptionalIntEnv(EnvOpenHour, 7); err != nil {
		errs = append(errs, err)
	}
	if rules.CloseHour, err = getOptionalIntEnv(EnvCloseHour, 17); err != nil {
		errs = append(errs, err)
	}
	return rules, errors.Join(errs...)
}

// inferCalendarMode picks the first configured source.
func inferCalendarMode(c CalendarConfig) CalendarMode {
	switch {
	case c.CalendarID != "":
		return CalendarGoogle
	case c.ICSURL != "":
		return CalendarICS
	case c.TimetableFile != "":
		return CalendarTimetable
	default:
		return CalendarNone
	}
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvCacheTTL, c.CacheTTL))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvFetchTimeout, c.FetchTimeout))
	}
	if c.FetchRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvFetchRetries, c.FetchRetries))
	}
	if c.FetchRPM < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvFetchRPM, c.FetchRPM))
	}
	if _, err := timeutil.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvTimezone, err))
	}
	if err := c.OperatingRules().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("operating rules: %w", err))
	}
	if err := c.Calendar.validate(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.LLMProviders {
		if _, ok := genai.ParseProvider(p); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown provider %q", EnvLLMProviders, p))
		}
	}
	if c.AskRateBurst < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %v", EnvAskRateBurst, c.AskRateBurst))
	}
	if c.AskRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvAskRateRefill, c.AskRateRefill))
	}
	if c.AskRateDaily < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvAskRateDaily, c.AskRateDaily))
	}
	if c.R2Enabled() {
		if err := c.ObjectStoreConfig().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("r2: %w", err))
		}
	}
	for kind, src := range c.Sources {
		if src.Type == SourceObject && !c.R2Enabled() {
			errs = append(errs, fmt.Errorf("%s: object key source requires %s", kind, EnvR2BucketName))
		}
	}
	if c.SentryToken != "" && c.SentryDSN == "" && c.SentryHost == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvSentryHost, EnvSentryToken))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c CalendarConfig) validate() error {
	switch c.Mode {
	case CalendarNone:
		return nil
	case CalendarGoogle:
		if c.CalendarID == "" || c.APIKey == "" {
			return fmt.Errorf("calendar mode google requires %s and %s", EnvCalendarID, EnvCalendarAPIKey)
		}
	case CalendarICS:
		if c.ICSURL == "" {
			return fmt.Errorf("calendar mode ics requires %s", EnvICSURL)
		}
	case CalendarTimetable:
		if c.TimetableFile == "" {
			return fmt.Errorf("calendar mode timetable requires %s", EnvTimetableFile)
		}
	default:
		return fmt.Errorf("%s: unknown mode %q", EnvCalendarMode, c.Mode)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getOptionalIntEnv returns nil for "none" and an error for other
// non-numeric values.
func getOptionalIntEnv(key string, defaultValue int) (*int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	switch {
	case value == "":
		return &defaultValue, nil
	case strings.EqualFold(value, "none"):
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a number", key, value)
	}
	return &n, nil
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "directory.db")
}

// Location returns the reference timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := timeutil.LoadLocation(c.Timezone)
	if err != nil {
		return timeutil.MustLoadLocation(timeutil.DefaultTimezone)
	}
	return loc
}

// OperatingRules converts the rules for the evaluator.
func (c *Config) OperatingRules() *availability.OperatingRules {
	return &availability.OperatingRules{
		HolidayWeekday: c.Rules.HolidayWeekday,
		OpenHour:       c.Rules.OpenHour,
		CloseHour:      c.Rules.CloseHour,
		CloseHourOpen:  c.Rules.CloseHourOpen,
	}
}

// ConfiguredKinds returns the tables that have a source, in directory order.
func (c *Config) ConfiguredKinds() []directory.Kind {
	var kinds []directory.Kind
	for _, k := range directory.Kinds {
		if c.Sources[k].Type != SourceNone {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != "" || c.CerebrasAPIKey != ""
}

// GenAIConfig converts the assistant settings. Unknown provider names
// are dropped here; Validate reports them.
func (c *Config) GenAIConfig() genai.Config {
	var providers []genai.Provider
	for _, name := range c.LLMProviders {
		if p, ok := genai.ParseProvider(name); ok {
			providers = append(providers, p)
		}
	}
	return genai.Config{
		Providers:       providers,
		Gemini:          genai.ProviderConfig{APIKey: c.GeminiAPIKey, Models: c.GeminiModels},
		Groq:            genai.ProviderConfig{APIKey: c.GroqAPIKey, Models: c.GroqModels},
		Cerebras:        genai.ProviderConfig{APIKey: c.CerebrasAPIKey, Models: c.CerebrasModels},
		Retry:           genai.DefaultRetryConfig(),
		MaxOutputTokens: c.LLMMaxOutputTokens,
		Temperature:     genai.DefaultTemperature,
	}
}

// R2Enabled reports whether an R2 bucket is configured.
func (c *Config) R2Enabled() bool {
	return c.R2.BucketName != ""
}

// ObjectStoreConfig converts the R2 settings.
func (c *Config) ObjectStoreConfig() objectstore.Config {
	endpoint := c.R2.Endpoint
	if endpoint == "" && c.R2.AccountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2.AccountID)
	}
	return objectstore.Config{
		Endpoint:    endpoint,
		AccessKeyID: c.R2.AccessKeyID,
		SecretKey:   c.R2.SecretAccessKey,
		Bucket:      c.R2.BucketName,
		Region:      "auto",
	}
}

// SentryConfig converts the error tracking settings.
func (c *Config) SentryConfig(release string) sentry.Config {
	return sentry.Config{
		DSN:         c.SentryDSN,
		Token:       c.SentryToken,
		Host:        c.SentryHost,
		Environment: c.SentryEnvironment,
		Release:     release,
		SampleRate:  c.SentrySampleRate,
	}
}
