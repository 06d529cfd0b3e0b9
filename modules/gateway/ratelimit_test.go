package gateway

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowsBurst(t *testing.T) {
	limiter := newRateLimiter(5, 1)

	for i := 0; i < 5; i++ {
		if !limiter.allow() {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if limiter.allow() {
		t.Error("request beyond burst should be denied")
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	limiter := newRateLimiter(2, 100)

	limiter.allow()
	limiter.allow()
	if limiter.allow() {
		t.Fatal("bucket should be empty")
	}

	// 100 tokens/s refills the 2-token bucket well within this window.
	time.Sleep(1100 * time.Millisecond)

	if !limiter.allow() {
		t.Error("bucket should have refilled")
	}
}

func TestRateLimiter_CapsAtMax(t *testing.T) {
	limiter := newRateLimiter(3, 1000)

	time.Sleep(1100 * time.Millisecond)

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed = %d, want burst cap 3", allowed)
	}
}
