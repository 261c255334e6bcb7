package ratelimit

import (
	"sync"
	"time"
)

// Window approximates a rolling quota with two fixed windows:
//
//	effective = current + previous * (unelapsed fraction of current window)
//
// A nil *Window allows everything.
type Window struct {
	mu       sync.Mutex
	limit    int
	size     time.Duration
	start    time.Time
	current  int
	previous int
	now      func() time.Time
}

// NewWindow returns a counter allowing limit events per size, or nil when
// limit <= 0.
func NewWindow(limit int, size time.Duration) *Window {
	return newWindow(limit, size, time.Now)
}

func newWindow(limit int, size time.Duration, now func() time.Time) *Window {
	if limit <= 0 || size <= 0 {
		return nil
	}
	return &Window{limit: limit, size: size, start: now(), now: now}
}

// rotate must be called with mu held.
func (w *Window) rotate(now time.Time) {
	elapsed := now.Sub(w.start)
	if elapsed < w.size {
		return
	}
	passed := elapsed / w.size
	if passed == 1 {
		w.previous = w.current
	} else {
		w.previous = 0
	}
	w.current = 0
	w.start = w.start.Add(passed * w.size)
}

// count must be called with mu held, after rotate.
func (w *Window) count(now time.Time) float64 {
	overlap := float64(w.size-now.Sub(w.start)) / float64(w.size)
	overlap = min(max(overlap, 0), 1)
	return float64(w.current) + float64(w.previous)*overlap
}

// Allow records one event if the quota allows it.
func (w *Window) Allow() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.rotate(now)
	if w.count(now) >= float64(w.limit) {
		return false
	}
	w.current++
	return true
}

func (w *Window) check() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.rotate(now)
	return w.count(now) < float64(w.limit)
}

func (w *Window) take() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.rotate(now)
	w.current++
}

// Remaining returns the approximate events left, or -1 for a nil Window.
func (w *Window) Remaining() int {
	if w == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.rotate(now)
	return max(int(float64(w.limit)-w.count(now)), 0)
}

// Idle reports whether no event counts against the quota any more.
func (w *Window) Idle() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.rotate(now)
	return w.count(now) == 0
}
