package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := newLimiter(3, 1, clock.Now)

	for i := range 3 {
		if !l.Allow() {
			t.Fatalf("Allow() #%d = false, want true", i+1)
		}
	}
	if l.Allow() {
		t.Fatal("Allow() on empty bucket = true")
	}

	clock.Advance(time.Second)
	if !l.Allow() {
		t.Error("Allow() after one second of refill = false")
	}
	if l.Allow() {
		t.Error("only one token should have refilled")
	}
}

func TestLimiter_RefillCapped(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := newLimiter(2, 10, clock.Now)
	l.Allow()
	clock.Advance(time.Hour)

	if got := l.Available(); got != 2 {
		t.Errorf("Available() = %v, want 2", got)
	}
	if !l.IsFull() {
		t.Error("IsFull() = false after long idle")
	}
}

func TestNewPerMinute(t *testing.T) {
	t.Parallel()

	l := NewPerMinute(120)
	if l.refillRate != 2 || l.maxTokens != 4 {
		t.Errorf("refillRate = %v, maxTokens = %v; want 2, 4", l.refillRate, l.maxTokens)
	}

	slow := NewPerMinute(6)
	if slow.maxTokens != 1 {
		t.Errorf("burst for slow rate = %v, want 1", slow.maxTokens)
	}
}

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	t.Run("token available", func(t *testing.T) {
		t.Parallel()
		l := New(1, 1)
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
	})

	t.Run("waits for refill", func(t *testing.T) {
		t.Parallel()
		l := New(1, 50)
		l.Allow()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		l := New(1, 0.01)
		l.Allow()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() = %v, want DeadlineExceeded", err)
		}
	})

	t.Run("no refill", func(t *testing.T) {
		t.Parallel()
		l := New(0, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() = %v, want DeadlineExceeded", err)
		}
	})
}

func TestLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	l := New(100, 0)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 200 {
		wg.Go(func() {
			if l.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d, want 100", allowed)
	}
}
