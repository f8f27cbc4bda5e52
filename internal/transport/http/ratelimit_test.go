package http

import (
	"testing"
	"time"
)

func TestRateLimiter_PerKey(t *testing.T) {
	r := newRateLimiter(2)

	if !r.allow("a") || !r.allow("a") {
		t.Fatal("first two attempts should pass")
	}
	if r.allow("a") {
		t.Fatal("third attempt should be rejected")
	}
	if !r.allow("b") {
		t.Fatal("other clients keep their own budget")
	}

	r.clear()
	if !r.allow("a") {
		t.Fatal("attempts should pass after reset")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	r := newRateLimiter(0)
	for i := 0; i < 100; i++ {
		if !r.allow("a") {
			t.Fatal("disabled limiter must allow everything")
		}
	}

	var nilLimiter *rateLimiter
	if !nilLimiter.allow("a") {
		t.Fatal("nil limiter must allow everything")
	}
}

func TestRateLimiter_ResetsOnlyWhileRunning(t *testing.T) {
	r := newRateLimiter(1)
	r.window = 10 * time.Millisecond

	if !r.allow("a") || r.allow("a") {
		t.Fatal("expected a budget of one attempt")
	}
	time.Sleep(30 * time.Millisecond)
	if r.allow("a") {
		t.Fatal("counters must not reset before startReset")
	}

	stop := make(chan struct{})
	r.startReset(stop)
	defer close(stop)

	deadline := time.Now().Add(time.Second)
	for !r.allow("a") {
		if time.Now().After(deadline) {
			t.Fatal("counters were not reset by the running window")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
