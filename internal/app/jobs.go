package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/garyellow/campus-assist-go/internal/config"
	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/snapshot"
	"github.com/garyellow/campus-assist-go/internal/warmup"
)

// newScheduler registers the cron jobs in the reference timezone. Jobs
// are not started until startBackgroundJobs.
func (a *Application) newScheduler() (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(a.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"directory_refresh", a.cfg.RefreshCron, a.refreshDirectory},
		{"store_cleanup", a.cfg.CleanupCron, a.cleanupStore},
	}
	if a.snapshots != nil {
		jobs = append(jobs, struct {
			name string
			spec string
			run  func(context.Context) error
		}{"snapshot_upload", a.cfg.SnapshotCron, a.uploadSnapshot})
	}

	for _, job := range jobs {
		if job.spec == "" || job.spec == "off" {
			a.logger.WithField("job", job.name).Info("Job disabled")
			continue
		}
		if _, err := c.AddFunc(job.spec, a.jobFunc(job.name, job.run)); err != nil {
			return nil, fmt.Errorf("%s: invalid schedule %q: %w", job.name, job.spec, err)
		}
		a.logger.WithField("job", job.name).WithField("schedule", job.spec).Debug("Job scheduled")
	}
	return c, nil
}

// jobFunc wraps run with a timeout, logging and metrics.
func (a *Application) jobFunc(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		start := time.Now()
		err := run(ctx)
		duration := time.Since(start)

		status := "success"
		entry := a.logger.WithField("job", name).WithField("duration_ms", duration.Milliseconds())
		if err != nil {
			status = "error"
			entry.WithError(err).Error("Job failed")
		} else {
			entry.Info("Job completed")
		}
		if a.metrics != nil {
			a.metrics.RecordJob(name, status, duration)
		}
	}
}

// refreshDirectory reloads every configured table. A failed table keeps
// being served from the last good copy until its TTL runs out.
func (a *Application) refreshDirectory(ctx context.Context) error {
	kinds := a.cfg.ConfiguredKinds()
	if len(kinds) == 0 {
		return nil
	}
	stats, err := warmup.Run(ctx, a.cache, warmup.Options{
		Kinds:   kinds,
		Timeout: config.WarmupTable,
	})
	if a.calendar != nil {
		a.calendar.Invalidate()
	}
	a.logger.WithField("tables", stats.Tables.Load()).
		WithField("rows", stats.Rows.Load()).
		Debug("Directory refreshed")
	return err
}

// cleanupStore removes persisted tables older than the store max age.
func (a *Application) cleanupStore(ctx context.Context) error {
	deleted, err := a.db.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	a.logger.WithField("deleted", deleted).Info("Store cleanup completed")
	return nil
}

// uploadSnapshot backs the store up to R2. Another replica holding the
// lock is not an error.
func (a *Application) uploadSnapshot(ctx context.Context) error {
	etag, err := a.snapshots.Upload(ctx)
	switch {
	case errors.Is(err, snapshot.ErrLocked):
		a.logger.Debug("Snapshot upload skipped: another instance holds the lock")
		return nil
	case errors.Is(err, snapshot.ErrLockLost):
		a.logger.Warn("Snapshot upload aborted: lock taken over by another instance")
		return nil
	case errors.Is(err, snapshot.ErrEmpty):
		a.logger.Debug("Snapshot upload skipped: nothing stored yet")
		return nil
	case err != nil:
		return err
	}
	a.logger.WithField("etag", etag).Info("Snapshot uploaded")
	return nil
}

// updateCacheSizeMetrics periodically records table sizes to Prometheus.
func (a *Application) updateCacheSizeMetrics(ctx context.Context) {
	a.logger.Debug("Cache metrics job started")
	defer a.logger.Debug("Cache metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordCacheSizeMetrics(ctx)
		}
	}
}

func (a *Application) recordCacheSizeMetrics(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	for _, kind := range directory.Kinds {
		a.metrics.SetTableSize(string(kind), a.cache.Peek(kind).Len())
		if a.db == nil {
			continue
		}
		if n, err := a.db.CountRows(ctx, kind); err == nil {
			a.metrics.SetStoredRows(string(kind), n)
		}
	}
}
