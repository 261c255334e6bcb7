// Package warmup loads every configured directory table at startup so the
// first page view does not pay for the fetch, and tracks readiness.
package warmup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/campus-assist-go/internal/directory"
)

// Refresher force-loads a table. *directory.Cache satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, kind directory.Kind) (*directory.Table, error)
}

// Recorder receives warmup outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordWarmupTask(table, status string)
	RecordWarmupDuration(d time.Duration)
}

// Options configures Run.
type Options struct {
	Kinds   []directory.Kind // every kind when empty
	Timeout time.Duration    // per table; none when <= 0
	Metrics Recorder
}

// Stats counts what Run loaded.
type Stats struct {
	Tables atomic.Int64
	Rows   atomic.Int64
	Failed atomic.Int64
}

// Run loads all kinds concurrently. One table failing does not stop the
// others; the joined errors are returned after every load finishes.
func Run(ctx context.Context, cache Refresher, opts Options) (*Stats, error) {
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = slices.Clone(directory.Kinds)
	}

	stats := &Stats{}
	start := time.Now()
	errs := make([]error, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			errs[i] = loadOne(ctx, cache, kind, opts, stats)
			return nil
		})
	}
	_ = g.Wait()

	d := time.Since(start)
	if opts.Metrics != nil {
		opts.Metrics.RecordWarmupDuration(d)
	}
	err := errors.Join(errs...)
	slog.InfoContext(ctx, "Warmup finished",
		"tables", stats.Tables.Load(),
		"rows", stats.Rows.Load(),
		"failed", stats.Failed.Load(),
		"duration_ms", d.Milliseconds())
	return stats, err
}

func loadOne(ctx context.Context, cache Refresher, kind directory.Kind, opts Options, stats *Stats) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	t, err := cache.Refresh(ctx, kind)
	status := "success"
	if err != nil {
		status = "error"
		stats.Failed.Add(1)
		slog.WarnContext(ctx, "Warmup table failed", "table", kind, "error", err)
	} else {
		stats.Tables.Add(1)
		stats.Rows.Add(int64(t.Len()))
		slog.DebugContext(ctx, "Warmup table loaded", "table", kind, "rows", t.Len(), "skipped", t.Skipped)
	}
	if opts.Metrics != nil {
		opts.Metrics.RecordWarmupTask(string(kind), status)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// RunInBackground runs Run on a detached goroutine and marks ready when it
// returns, whether or not every table loaded. done, when non-nil, is
// closed afterwards.
func RunInBackground(ctx context.Context, cache Refresher, ready *ReadinessState, opts Options, done chan<- struct{}) {
	go func() {
		if done != nil {
			defer close(done)
		}
		if _, err := Run(context.WithoutCancel(ctx), cache, opts); err != nil {
			slog.WarnContext(ctx, "Warmup completed with errors", "error", err)
		}
		if ready != nil {
			ready.MarkReady()
		}
	}()
}

// ParseKinds parses a comma-separated list such as "faculty, labs".
// Empty input selects every kind.
func ParseKinds(s string) ([]directory.Kind, error) {
	var kinds []directory.Kind
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := directory.ParseKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	if len(kinds) == 0 {
		return slices.Clone(directory.Kinds), nil
	}
	return kinds, nil
}
