package router

import (
	"testing"
	"time"
)

func newTestLimiter(limit int) (*RateLimiter, *time.Time) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(limit)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestRateLimiter_ExactLimits(t *testing.T) {
	limiter, _ := newTestLimiter(100)

	for i := 0; i < 100; i++ {
		if !limiter.Allow("c1") {
			t.Fatalf("event %d should be allowed", i+1)
		}
	}
	if limiter.Allow("c1") {
		t.Error("101st event should be denied")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	limiter, now := newTestLimiter(2)

	limiter.Allow("c1")
	limiter.Allow("c1")
	if limiter.Allow("c1") {
		t.Fatal("third event should be denied")
	}

	*now = now.Add(59 * time.Second)
	if limiter.Allow("c1") {
		t.Error("still inside the window")
	}

	*now = now.Add(time.Second)
	if !limiter.Allow("c1") {
		t.Error("a new window should allow events again")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter, now := newTestLimiter(10)
	limiter.Allow("old")

	*now = now.Add(4 * time.Minute)
	limiter.Allow("recent")

	*now = now.Add(2 * time.Minute)
	limiter.Cleanup()

	if limiter.Len() != 1 {
		t.Errorf("expected only the recent entry to survive, got %d", limiter.Len())
	}
}

func TestNewRateLimiter_Default(t *testing.T) {
	if limiter := NewRateLimiter(0); limiter.limit != DefaultRateLimit {
		t.Errorf("expected default limit %d, got %d", DefaultRateLimit, limiter.limit)
	}
}
