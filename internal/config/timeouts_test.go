package config

import (
	"testing"
	"time"
)

// TestHTTPTimeouts verifies server timeout relationships
func TestHTTPTimeouts(t *testing.T) {
	if HTTPWrite <= AssistantRequest {
		t.Errorf("HTTPWrite (%v) must exceed AssistantRequest (%v)", HTTPWrite, AssistantRequest)
	}
	if HTTPIdle < HTTPWrite {
		t.Errorf("HTTPIdle (%v) should not be shorter than HTTPWrite (%v)", HTTPIdle, HTTPWrite)
	}
	if PageRender <= FetchRequest {
		t.Errorf("PageRender (%v) must exceed FetchRequest (%v)", PageRender, FetchRequest)
	}
}

// TestCacheLifetimes verifies the documented defaults
func TestCacheLifetimes(t *testing.T) {
	tests := []struct {
		name     string
		got      time.Duration
		expected time.Duration
	}{
		{"DirectoryCacheTTL", DirectoryCacheTTL, 5 * time.Minute},
		{"CalendarCacheTTL", CalendarCacheTTL, time.Minute},
		{"FetchRequest", FetchRequest, 10 * time.Second},
		{"StoreMaxAge", StoreMaxAge, 168 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

// TestWarmupFitsGracePeriod ensures one table can finish before readiness
// gives up on warmup.
func TestWarmupFitsGracePeriod(t *testing.T) {
	if WarmupTable >= WarmupGracePeriod {
		t.Errorf("WarmupTable (%v) should be shorter than WarmupGracePeriod (%v)", WarmupTable, WarmupGracePeriod)
	}
}
