package ratelimit

import (
	"sync"
	"time"
)

// DefaultCleanupPeriod is how often idle keys are dropped.
const DefaultCleanupPeriod = 5 * time.Minute

// Recorder receives limiter events. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordRateLimiterDrop(limiter string)
	SetRateLimiterKeys(limiter string, n int)
}

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	Name          string        // metrics label, e.g. "ask"
	Burst         float64       // bucket size per key
	RefillRate    float64       // tokens per second per key
	DailyLimit    int           // rolling 24h quota per key; 0 disables
	CleanupPeriod time.Duration // DefaultCleanupPeriod when <= 0
	Metrics       Recorder      // optional
}

// KeyedLimiter keeps one bucket (and optional daily window) per key, such
// as a client IP. Keys whose bucket is full and whose window is idle are
// dropped by a background sweep.
type KeyedLimiter struct {
	cfg     KeyedConfig
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]*keyedEntry
	stop    chan struct{}
	once    sync.Once
}

type keyedEntry struct {
	mu     sync.Mutex // serializes check-then-take across both layers
	bucket *Limiter
	daily  *Window
}

// NewKeyedLimiter starts a limiter. Call Stop to end its sweep goroutine.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	return newKeyedLimiter(cfg, time.Now)
}

func newKeyedLimiter(cfg KeyedConfig, now func() time.Time) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = DefaultCleanupPeriod
	}
	kl := &KeyedLimiter{
		cfg:     cfg,
		now:     now,
		entries: make(map[string]*keyedEntry),
		stop:    make(chan struct{}),
	}
	go kl.sweepLoop()
	return kl
}

// Allow takes one token for key. Both the bucket and the daily window must
// have room; nothing is consumed when either refuses. An empty key is
// always allowed.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	e := kl.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.daily.check() || !e.bucket.check() {
		if kl.cfg.Metrics != nil {
			kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
		}
		return false
	}
	e.daily.take()
	e.bucket.take()
	return true
}

func (kl *KeyedLimiter) entry(key string) *keyedEntry {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return e
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if e, ok := kl.entries[key]; ok {
		return e
	}
	e = &keyedEntry{
		bucket: newLimiter(kl.cfg.Burst, kl.cfg.RefillRate, kl.now),
		daily:  newWindow(kl.cfg.DailyLimit, 24*time.Hour, kl.now),
	}
	kl.entries[key] = e
	return e
}

// Available returns the tokens left for key.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.Burst
	}
	return e.bucket.Available()
}

// DailyRemaining returns the daily quota left for key, or -1 when the
// daily limit is disabled.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.DailyLimit
	}
	return e.daily.Remaining()
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

// Sweep drops idle keys and returns how many remain.
func (kl *KeyedLimiter) Sweep() int {
	kl.mu.Lock()
	for key, e := range kl.entries {
		if e.bucket.IsFull() && e.daily.Idle() {
			delete(kl.entries, key)
		}
	}
	n := len(kl.entries)
	kl.mu.Unlock()

	if kl.cfg.Metrics != nil {
		kl.cfg.Metrics.SetRateLimiterKeys(kl.cfg.Name, n)
	}
	return n
}

func (kl *KeyedLimiter) sweepLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-kl.stop:
			return
		case <-ticker.C:
			kl.Sweep()
		}
	}
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stop) })
}
