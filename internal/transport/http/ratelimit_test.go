package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(0, 0)
	r := newRateLimiter(2)
	r.now = func() time.Time { return now }

	if !r.allow() || !r.allow() {
		t.Fatalf("first two frames should pass")
	}
	if r.allow() {
		t.Fatalf("third frame in the window should be dropped")
	}

	now = now.Add(time.Minute)
	if !r.allow() {
		t.Fatalf("new window should reset the counter")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !r.allow() {
			t.Fatalf("limit 0 means unlimited")
		}
	}
}
