package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/garyellow/campus-assist-go/internal/metrics"
)

func TestKeyedLimiter_PerKey(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	kl := newKeyedLimiter(KeyedConfig{Name: "ask", Burst: 1, RefillRate: 1, CleanupPeriod: time.Hour}, clock.Now)
	defer kl.Stop()

	if !kl.Allow("10.0.0.1") {
		t.Fatal("first request from 10.0.0.1 refused")
	}
	if kl.Allow("10.0.0.1") {
		t.Error("second request from 10.0.0.1 should be limited")
	}
	if !kl.Allow("10.0.0.2") {
		t.Error("other client should have its own bucket")
	}
	if !kl.Allow("") {
		t.Error("empty key is always allowed")
	}
	if kl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", kl.Len())
	}

	clock.Advance(time.Second)
	if !kl.Allow("10.0.0.1") {
		t.Error("bucket should refill")
	}
}

func TestKeyedLimiter_DailyLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	kl := newKeyedLimiter(KeyedConfig{Name: "ask", Burst: 10, RefillRate: 10, DailyLimit: 2}, clock.Now)
	defer kl.Stop()

	if got := kl.DailyRemaining("ip"); got != 2 {
		t.Errorf("DailyRemaining() before use = %d, want 2", got)
	}
	kl.Allow("ip")
	kl.Allow("ip")
	if kl.Allow("ip") {
		t.Error("daily quota should refuse the third request")
	}
	if got := kl.DailyRemaining("ip"); got != 0 {
		t.Errorf("DailyRemaining() = %d, want 0", got)
	}
	// The refused request must not take a bucket token.
	if got := kl.Available("ip"); got != 8 {
		t.Errorf("Available() = %v, want 8", got)
	}

	noDaily := newKeyedLimiter(KeyedConfig{Burst: 1}, clock.Now)
	defer noDaily.Stop()
	if got := noDaily.DailyRemaining("ip"); got != -1 {
		t.Errorf("DailyRemaining() with no limit = %d, want -1", got)
	}
}

func TestKeyedLimiter_Sweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	kl := newKeyedLimiter(KeyedConfig{
		Name: "ask", Burst: 2, RefillRate: 1, DailyLimit: 5, CleanupPeriod: time.Hour, Metrics: m,
	}, clock.Now)
	defer kl.Stop()

	kl.Allow("a")
	kl.Allow("b")
	clock.Advance(10 * time.Second)

	// Buckets are full again but the daily windows still count the requests.
	if n := kl.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}

	clock.Advance(72 * time.Hour)
	if n := kl.Sweep(); n != 0 {
		t.Errorf("Sweep() after idle = %d, want 0", n)
	}
	if got := testutil.ToFloat64(m.RateLimiterKeys.WithLabelValues("ask")); got != 0 {
		t.Errorf("keys gauge = %v, want 0", got)
	}
}

func TestKeyedLimiter_RecordsDrops(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	kl := NewKeyedLimiter(KeyedConfig{Name: "ask", Burst: 1, RefillRate: 0, Metrics: m})
	defer kl.Stop()

	kl.Allow("ip")
	kl.Allow("ip")
	kl.Allow("ip")

	if got := testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("ask")); got != 2 {
		t.Errorf("drops = %v, want 2", got)
	}
}

func TestKeyedLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	kl := NewKeyedLimiter(KeyedConfig{Name: "ask", Burst: 1000, RefillRate: 1})
	defer kl.Stop()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Go(func() {
			key := fmt.Sprintf("10.0.0.%d", i%10)
			kl.Allow(key)
			kl.Available(key)
		})
	}
	wg.Wait()

	if kl.Len() != 10 {
		t.Errorf("Len() = %d, want 10", kl.Len())
	}
	kl.Stop()
	kl.Stop()
}
