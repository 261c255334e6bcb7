package scraper

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// CacheWrapper collapses concurrent fetches of the same key into one call.
type CacheWrapper struct {
	group singleflight.Group
}

// NewCacheWrapper creates a new cache wrapper
func NewCacheWrapper() *CacheWrapper {
	return &CacheWrapper{}
}

// Do runs fn once per key among concurrent callers. fn gets the first
// caller's deadline but not its cancellation, so one caller giving up does
// not fail the others; each caller still returns as soon as its own ctx is
// done. shared reports whether the result went to more than one caller.
func (c *CacheWrapper) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (v any, err error, shared bool) {
	if err := ctx.Err(); err != nil {
		return nil, err, false
	}

	ch := c.group.DoChan(key, func() (any, error) {
		inner := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			inner, cancel = context.WithDeadline(inner, deadline)
			defer cancel()
		}
		return fn(inner)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	}
}

// Forget removes a key from the group so the next call executes again.
func (c *CacheWrapper) Forget(key string) {
	c.group.Forget(key)
}
