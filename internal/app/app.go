// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/garyellow/campus-assist-go/internal/availability"
	"github.com/garyellow/campus-assist-go/internal/buildinfo"
	"github.com/garyellow/campus-assist-go/internal/config"
	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/genai"
	"github.com/garyellow/campus-assist-go/internal/loader"
	"github.com/garyellow/campus-assist-go/internal/logger"
	"github.com/garyellow/campus-assist-go/internal/metrics"
	"github.com/garyellow/campus-assist-go/internal/objectstore"
	"github.com/garyellow/campus-assist-go/internal/ratelimit"
	"github.com/garyellow/campus-assist-go/internal/schedule"
	"github.com/garyellow/campus-assist-go/internal/scraper"
	"github.com/garyellow/campus-assist-go/internal/sentry"
	"github.com/garyellow/campus-assist-go/internal/snapshot"
	"github.com/garyellow/campus-assist-go/internal/storage"
	"github.com/garyellow/campus-assist-go/internal/warmup"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	db             *storage.DB
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	fetcher        *scraper.Client
	cache          *directory.Cache
	evaluator      *availability.Evaluator
	calendar       *schedule.Caching   // nil without a calendar source
	timetable      *schedule.Timetable // set in timetable mode
	assistant      *genai.Assistant    // nil without an LLM key
	askLimiter     *ratelimit.KeyedLimiter
	snapshots      *snapshot.Manager // nil without R2
	readinessState *warmup.ReadinessState
	views          *views
	location       *time.Location
	now            func() time.Time
	server         *http.Server
	scheduler      *cron.Cron
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	info := buildinfo.Get()
	log = log.WithField("service", "campus-assist-go").WithField("version", info.Version)
	if name := cfg.ServerName; name != "" {
		log = log.WithField("instance_id", name)
	} else if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger so package-level slog.*Context() calls pick up
	// request_id and client_ip through ContextHandler.
	slog.SetDefault(log.Logger)

	log.WithField("build", info.String()).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(cfg.SentryConfig(info.Version)); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, error tracking disabled")
	} else if sentry.IsEnabled() {
		log.Info("Error tracking enabled")
	}

	loc := cfg.Location()

	db, err := storage.New(ctx, cfg.SQLitePath(), cfg.StoreMaxAge)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).WithField("max_age", cfg.StoreMaxAge).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	fetcher := scraper.NewClient(cfg.FetchTimeout, fetchOptions(cfg, m)...)

	var objects *objectstore.Client
	var snapshots *snapshot.Manager
	if cfg.R2Enabled() {
		objects, err = objectstore.New(ctx, cfg.ObjectStoreConfig())
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("object store: %w", err)
		}
		snapshots = snapshot.New(objects, db, snapshot.Config{
			Key:     cfg.R2.SnapshotKey,
			LockTTL: cfg.R2.LockTTL,
		})
		if n, err := snapshots.RestoreIfEmpty(ctx); err != nil {
			log.WithError(err).Warn("Snapshot restore failed, starting cold")
		} else if n > 0 {
			log.WithField("tables", n).Info("Restored directory snapshot")
		}
	}

	sources, err := buildLoaders(cfg, fetcher, objects)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if kinds := sources.Kinds(); len(kinds) > 0 {
		log.WithField("tables", kinds).Info("Directory sources configured")
	} else {
		log.Warn("No directory source configured, tables will be empty")
	}
	cache := directory.NewCache(sources, cfg.CacheTTL,
		directory.WithStore(db),
		directory.WithMetrics(m),
	)

	source, timetable, err := buildSchedule(cfg, fetcher, m, loc)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	var calendar *schedule.Caching
	if source != nil {
		calendar = schedule.NewCaching(source, loc, cfg.Calendar.CacheTTL).WithTimeout(cfg.FetchTimeout)
	}
	log.WithField("mode", cfg.Calendar.Mode).Info("Calendar source configured")

	evaluator := &availability.Evaluator{
		Rules:    cfg.OperatingRules(),
		Location: loc,
		Timeout:  cfg.FetchTimeout,
		Metrics:  m,
	}
	if calendar != nil {
		evaluator.Source = calendar
	}

	var assistant *genai.Assistant
	if cfg.HasLLMProvider() {
		assistant, err = genai.NewAssistant(ctx, cfg.GenAIConfig(), m)
		if err != nil {
			log.WithError(err).Warn("Assistant initialization failed, /ask disabled")
			assistant = nil
		} else {
			log.WithField("chain", assistant.Chain()).Info("Assistant enabled")
		}
	}

	askLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:       "ask",
		Burst:      cfg.AskRateBurst,
		RefillRate: cfg.AskRateRefill / 60.0, // per minute to per second
		DailyLimit: cfg.AskRateDaily,
		Metrics:    m,
	})

	v, err := loadViews()
	if err != nil {
		_ = db.Close()
		askLimiter.Stop()
		return nil, fmt.Errorf("templates: %w", err)
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		db:             db,
		metrics:        m,
		registry:       registry,
		fetcher:        fetcher,
		cache:          cache,
		evaluator:      evaluator,
		calendar:       calendar,
		timetable:      timetable,
		assistant:      assistant,
		askLimiter:     askLimiter,
		snapshots:      snapshots,
		readinessState: warmup.NewReadinessState(cfg.WarmupTimeout),
		views:          v,
		location:       loc,
		now:            time.Now,
	}

	app.scheduler, err = app.newScheduler()
	if err != nil {
		_ = db.Close()
		askLimiter.Stop()
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func fetchOptions(cfg *config.Config, m *metrics.Metrics) []scraper.Option {
	opts := []scraper.Option{
		scraper.WithRetries(cfg.FetchRetries, config.FetchRetryInitial),
		scraper.WithRecorder(m),
	}
	if cfg.FetchRPM > 0 {
		opts = append(opts, scraper.WithRateLimit(ratelimit.NewPerMinute(cfg.FetchRPM)))
	}
	return opts
}

// buildLoaders maps each configured table to its source.
func buildLoaders(cfg *config.Config, fetcher *scraper.Client, objects *objectstore.Client) (loader.Multi, error) {
	multi := make(loader.Multi, len(cfg.Sources))
	for kind, src := range cfg.Sources {
		switch src.Type {
		case config.SourceNone:
			continue
		case config.SourceSheets:
			multi[kind] = &loader.SheetsCSV{URL: loader.SheetsExportURL(src.SheetID, src.SheetGID), Fetcher: fetcher}
		case config.SourceHTML:
			multi[kind] = &loader.HTMLTable{URL: src.URL, Selector: src.Selector, Fetcher: fetcher}
		case config.SourceFile:
			multi[kind] = &loader.File{Path: src.Path}
		case config.SourceObject:
			if objects == nil {
				return nil, fmt.Errorf("%s: object source needs R2", kind)
			}
			multi[kind] = &loader.Object{Key: src.ObjectKey, Store: objects}
		default:
			return nil, fmt.Errorf("%s: unknown source type %q", kind, src.Type)
		}
	}
	return multi, nil
}

// buildSchedule returns the calendar source for the configured mode. The
// timetable is also returned on its own so pages can tell "no schedule"
// apart from "free".
func buildSchedule(cfg *config.Config, fetcher *scraper.Client, m *metrics.Metrics, loc *time.Location) (schedule.Source, *schedule.Timetable, error) {
	c := cfg.Calendar
	switch c.Mode {
	case config.CalendarGoogle:
		return &schedule.GoogleCalendar{
			BaseURL:    c.BaseURL,
			CalendarID: c.CalendarID,
			APIKey:     c.APIKey,
			Location:   loc,
			Fetcher:    fetcher,
			Metrics:    m,
		}, nil, nil
	case config.CalendarICS:
		return &schedule.ICSFeed{URL: c.ICSURL, Location: loc, Fetcher: fetcher, Metrics: m}, nil, nil
	case config.CalendarTimetable:
		tt, err := schedule.LoadTimetable(c.TimetableFile, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("timetable: %w", err)
		}
		return tt, tt, nil
	default:
		return nil, nil, nil
	}
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) getFeatures() map[string]bool {
	return map[string]bool{
		"calendar":  a.evaluator != nil && a.evaluator.Source != nil,
		"assistant": a.assistant != nil,
		"snapshot":  a.snapshots != nil,
	}
}

func (a *Application) readinessCheck(c *gin.Context) {
	if !a.readinessState.IsReady() {
		status := a.readinessState.Status()
		a.logger.WithField("elapsed_seconds", status.ElapsedSeconds).
			WithField("timeout_seconds", status.TimeoutSeconds).
			Debug("Readiness check: warmup in progress")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": status.Reason,
			"progress": gin.H{
				"elapsed_seconds": status.ElapsedSeconds,
				"timeout_seconds": status.TimeoutSeconds,
			},
		})
		return
	}

	if a.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := a.db.Ping(ctx); err != nil {
			a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"reason":   a.readinessState.Status().Reason,
		"tables":   a.tableSizes(),
		"features": a.getFeatures(),
	})
}

// tableSizes reports the rows currently served per table, without loading.
func (a *Application) tableSizes() map[string]int {
	sizes := make(map[string]int, len(directory.Kinds))
	for _, kind := range directory.Kinds {
		sizes[string(kind)] = a.cache.Peek(kind).Len()
	}
	return sizes
}

// Run starts the HTTP server and background jobs.
//
// Shutdown order:
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context and stop the scheduler so no new job starts
//  3. Wait for running jobs and warmup to finish
//  4. Stop the HTTP server, then close the database and the rest
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	<-a.scheduler.Stop().Done()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs runs the initial warmup and starts the scheduler.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	kinds, err := warmup.ParseKinds(a.cfg.WarmupTables)
	if err != nil {
		a.logger.WithError(err).Warn("Invalid warmup tables, warming all")
		kinds = nil
	}

	done := make(chan struct{})
	a.wg.Go(func() { <-done })
	warmup.RunInBackground(ctx, a.cache, a.readinessState, warmup.Options{
		Kinds:   kinds,
		Timeout: config.WarmupTable,
		Metrics: a.metrics,
	}, done)

	a.scheduler.Start()
	a.wg.Go(func() {
		a.updateCacheSizeMetrics(ctx)
	})
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server and closes resources. It runs after
// background jobs have finished.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	if a.askLimiter != nil {
		a.askLimiter.Stop()
	}

	sentry.Flush(2 * time.Second)

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}
