package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := newRateLimiter(2)

	if !r.allow(start) || !r.allow(start.Add(time.Second)) {
		t.Fatalf("expected first two messages to pass")
	}
	if r.allow(start.Add(2 * time.Second)) {
		t.Fatalf("expected third message in the window to be limited")
	}
	if !r.allow(start.Add(time.Minute)) {
		t.Fatalf("expected a new window to reset the counter")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !r.allow(time.Now()) {
			t.Fatalf("disabled limiter must allow everything")
		}
	}
}
