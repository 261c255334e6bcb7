package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	domerrors "github.com/garyellow/campus-assist-go/internal/errors"
	"golang.org/x/sync/singleflight"
)

// Loader reads a whole table from its source.
type Loader interface {
	Load(ctx context.Context, kind Kind) (*Table, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, kind Kind) (*Table, error)

// Load calls f(ctx, kind).
func (f LoaderFunc) Load(ctx context.Context, kind Kind) (*Table, error) {
	return f(ctx, kind)
}

// Store persists the last successfully loaded copy of each table.
// LoadTable returns (nil, nil) when no copy younger than maxAge exists.
type Store interface {
	SaveTable(ctx context.Context, t *Table) error
	LoadTable(ctx context.Context, kind Kind, maxAge time.Duration) (*Table, error)
}

// MetricsRecorder receives cache events. All methods must be safe for concurrent use.
type MetricsRecorder interface {
	RecordCacheHit(table string)
	RecordCacheMiss(table string)
	SetTableSize(table string, rows int)
}

// Cache is a read-through, time-boxed cache of directory tables.
//
// Entries are replace-only: a reload swaps the whole *Table pointer, so
// readers never observe a partially updated table. Expired entries are
// refreshed lazily on the next Get; concurrent misses for the same table
// share a single load.
type Cache struct {
	loader  Loader
	store   Store
	metrics MetricsRecorder
	ttl     time.Duration
	now     func() time.Time
	entries map[Kind]*atomic.Pointer[Table]
	group   singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStore persists loaded tables and warms cold entries from the store.
func WithStore(s Store) CacheOption {
	return func(c *Cache) { c.store = s }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache over loader with the given time-to-live.
func NewCache(loader Loader, ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Kind]*atomic.Pointer[Table], len(Kinds)),
	}
	for _, k := range Kinds {
		c.entries[k] = new(atomic.Pointer[Table])
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached table for kind, loading it when absent or expired.
// A failed load returns an error wrapping ErrLoadFailure; the expired entry
// is not served in that case.
func (c *Cache) Get(ctx context.Context, kind Kind) (*Table, error) {
	entry, ok := c.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %w", domerrors.ErrInvalidInput, fmt.Errorf("unknown table %q", kind))
	}

	if t := entry.Load(); c.fresh(t) {
		if c.metrics != nil {
			c.metrics.RecordCacheHit(string(kind))
		}
		return t, nil
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(string(kind))
	}

	return c.load(ctx, kind, entry, false)
}

// Refresh reloads kind from the source regardless of age.
func (c *Cache) Refresh(ctx context.Context, kind Kind) (*Table, error) {
	entry, ok := c.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %w", domerrors.ErrInvalidInput, fmt.Errorf("unknown table %q", kind))
	}
	return c.load(ctx, kind, entry, true)
}

// Peek returns the cached table without loading. It may be expired or nil.
func (c *Cache) Peek(kind Kind) *Table {
	entry, ok := c.entries[kind]
	if !ok {
		return nil
	}
	return entry.Load()
}

// Invalidate drops the cached table so the next Get reloads it.
func (c *Cache) Invalidate(kind Kind) {
	if entry, ok := c.entries[kind]; ok {
		entry.Store(nil)
	}
}

func (c *Cache) fresh(t *Table) bool {
	return t != nil && t.Age(c.now()) < c.ttl
}

func (c *Cache) load(ctx context.Context, kind Kind, entry *atomic.Pointer[Table], force bool) (*Table, error) {
	key := string(kind)
	if force {
		key = "refresh:" + key
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// Another caller may have finished a load while this one waited.
		if t := entry.Load(); !force && c.fresh(t) {
			return t, nil
		}

		// Shared by every waiter, so it must outlive the first caller.
		loadCtx := context.WithoutCancel(ctx)

		if !force && entry.Load() == nil && c.store != nil {
			t, err := c.store.LoadTable(loadCtx, kind, c.ttl)
			if err != nil {
				slog.WarnContext(ctx, "Failed to read persisted table", "table", kind, "error", err)
			} else if t != nil {
				c.replace(entry, t)
				return t, nil
			}
		}

		t, err := c.loader.Load(loadCtx, kind)
		if err != nil {
			return nil, loadFailure(kind, err)
		}
		if t == nil {
			return nil, loadFailure(kind, errors.New("source returned no table"))
		}
		t.Kind = kind
		if t.LoadedAt.IsZero() {
			t.LoadedAt = c.now()
		}
		c.replace(entry, t)

		if c.store != nil {
			if err := c.store.SaveTable(loadCtx, t); err != nil {
				slog.WarnContext(ctx, "Failed to persist table", "table", kind, "error", err)
			}
		}
		if t.Skipped > 0 {
			slog.WarnContext(ctx, "Dropped rows missing name or location", "table", kind, "skipped", t.Skipped)
		}
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, loadFailure(kind, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Table), nil
	}
}

func (c *Cache) replace(entry *atomic.Pointer[Table], t *Table) {
	entry.Store(t)
	if c.metrics != nil {
		c.metrics.SetTableSize(string(t.Kind), len(t.Rows))
	}
}

// loadFailure wraps err with ErrLoadFailure and the notice shown in place
// of the table.
func loadFailure(kind Kind, err error) error {
	return domerrors.WithMessage("directory.load",
		fmt.Errorf("%w: %s: %w", domerrors.ErrLoadFailure, kind, err),
		"Unable to load %s data. Please try again later.", kind)
}
