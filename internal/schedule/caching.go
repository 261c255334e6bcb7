package schedule

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garyellow/campus-assist-go/internal/availability"
)

const (
	// DefaultCacheTTL is how long one day's intervals are reused.
	DefaultCacheTTL = time.Minute
	// DefaultFetchTimeout bounds one shared load of a day.
	DefaultFetchTimeout = 10 * time.Second
)

type dayEntry struct {
	intervals []availability.Interval
	fetchedAt time.Time
}

// Caching memoizes a Source per calendar day so one page render that
// checks many people fetches the feed once. Errors are not cached.
type Caching struct {
	source   availability.Source
	location *time.Location
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu    sync.Mutex
	days  map[string]dayEntry
	group singleflight.Group
}

// NewCaching wraps source. ttl <= 0 uses DefaultCacheTTL.
func NewCaching(source availability.Source, loc *time.Location, ttl time.Duration) *Caching {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Caching{
		source:   source,
		location: loc,
		ttl:      ttl,
		timeout:  DefaultFetchTimeout,
		now:      time.Now,
		days:     make(map[string]dayEntry),
	}
}

// WithTimeout sets the bound on one shared load. d <= 0 keeps the current
// value.
func (c *Caching) WithTimeout(d time.Duration) *Caching {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Intervals returns the cached intervals of day, fetching them when absent
// or older than the TTL.
func (c *Caching) Intervals(ctx context.Context, day time.Time) ([]availability.Interval, error) {
	key := day.In(c.location).Format(time.DateOnly)

	c.mu.Lock()
	e, ok := c.days[key]
	c.mu.Unlock()
	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.intervals, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// Shared by every waiter, so it must outlive the first caller.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		intervals, err := c.source.Intervals(loadCtx, day)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		for k := range c.days {
			if k != key {
				delete(c.days, k)
			}
		}
		c.days[key] = dayEntry{intervals: intervals, fetchedAt: c.now()}
		c.mu.Unlock()
		return intervals, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]availability.Interval), nil
	}
}

// Invalidate drops every cached day.
func (c *Caching) Invalidate() {
	c.mu.Lock()
	c.days = make(map[string]dayEntry)
	c.mu.Unlock()
}
