package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rl := newRateLimiter(3)
	defer rl.stop()
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("fourth request in the window should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("other clients have their own budget")
	}

	now = now.Add(time.Minute)
	if !rl.allow("10.0.0.1") {
		t.Fatal("budget should reset after the window")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rl := newRateLimiter(10)
	defer rl.stop()
	rl.now = func() time.Time { return now }

	rl.allow("10.0.0.1")
	now = now.Add(11 * time.Minute)
	rl.allow("10.0.0.2")
	rl.cleanupStaleEntries()

	if _, ok := rl.clients["10.0.0.1"]; ok {
		t.Error("stale client not removed")
	}
	if _, ok := rl.clients["10.0.0.2"]; !ok {
		t.Error("active client removed")
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := newRateLimiter(1)
	rl.stop()
	rl.stop()
}
