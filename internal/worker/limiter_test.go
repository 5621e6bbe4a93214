package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different key should also work
	if err := limiter.Wait(ctx, "anthropic"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := limiter.Wait(ctx, "xai"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	cancel()
	if err := limiter.Wait(ctx, "xai"); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "10.0.0.1"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// burst 1, token consumed
	if limiter.Allow("10.0.0.1") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("10.0.0.2") {
		t.Errorf("expected allow for other key")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetRate("anthropic", 0.1, 1)

	if !limiter.Allow("anthropic") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("anthropic") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("openai") {
		t.Errorf("other key should pass")
	}
}

func TestLimiter_Reserve(t *testing.T) {
	limiter := NewLimiter(0.5, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := limiter.Reserve("client"); !ok {
			t.Fatalf("request %d within burst should pass", i+1)
		}
	}

	ok, delay := limiter.Reserve("client")
	if ok {
		t.Fatal("expected third request to be rejected")
	}
	if delay <= 0 || delay > 2*time.Second {
		t.Errorf("expected delay up to 2s, got %v", delay)
	}

	// a rejected reservation must not consume a token
	ok, again := limiter.Reserve("client")
	if ok || again > delay {
		t.Errorf("expected rejection with delay <= %v, got %v (ok=%v)", delay, again, ok)
	}
}

func TestLimiter_Evict(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.Allow("old")
	limiter.SetRate("pinned", 1, 1)

	now = now.Add(10 * time.Minute)
	limiter.Allow("fresh")

	if removed := limiter.Evict(5 * time.Minute); removed != 1 {
		t.Errorf("expected 1 eviction, got %d", removed)
	}
	if limiter.Len() != 2 {
		t.Errorf("expected pinned and fresh keys to remain, got %d keys", limiter.Len())
	}
}
