package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowDrainsBucket(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("venue", 3, 0.001) {
			t.Fatalf("request %d should pass with a full bucket", i)
		}
	}
	if l.Allow("venue", 3, 0.001) {
		t.Fatalf("fourth request should be rejected")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0.001) {
		t.Fatalf("first key should pass")
	}
	if l.Allow("a", 1, 0.001) {
		t.Fatalf("first key should be drained")
	}
	if !l.Allow("b", 1, 0.001) {
		t.Fatalf("second key has its own bucket")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := New()
	if !l.Allow("venue", 1, 100) {
		t.Fatalf("initial request should pass")
	}
	if l.Allow("venue", 1, 100) {
		t.Fatalf("bucket should be empty")
	}
	time.Sleep(30 * time.Millisecond) // 100/s refill restores the token
	if !l.Allow("venue", 1, 100) {
		t.Fatalf("bucket should have refilled")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := New()
	l.Allow("venue", 1, 0.001) // drain

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "venue", 1, 0.001); err != context.DeadlineExceeded {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}
