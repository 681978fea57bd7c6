package ai

import (
	"context"
	"testing"
	"time"

	"pythia/pkg/errors"
)

func TestTokenBucketLimiter_Basic(t *testing.T) {
	// 60 req/min = 1 req/sec, burst=2
	limiter := NewTokenBucketLimiter("asi", 60, 2)

	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("First request should succeed: %v", err)
	}
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Second request should succeed: %v", err)
	}

	// Third request should wait (bucket empty)
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Third request should eventually succeed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 500*time.Millisecond {
		t.Errorf("Expected to wait ~1s, waited only %v", elapsed)
	}
}

func TestTokenBucketLimiter_Allow(t *testing.T) {
	limiter := NewTokenBucketLimiter("asi", 60, 2)

	if !limiter.Allow() {
		t.Error("First request should be allowed")
	}
	if !limiter.Allow() {
		t.Error("Second request should be allowed")
	}
	if limiter.Allow() {
		t.Error("Third request should be denied")
	}
}

func TestTokenBucketLimiter_ContextCancellation(t *testing.T) {
	limiter := NewTokenBucketLimiter("asi", 6, 1) // 6 req/min = 0.1 req/sec

	// Consume the burst
	_ = limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	if err == nil {
		t.Error("Expected error due to context cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context error, got: %v", err)
	}
}

func TestTokenBucketLimiter_DefaultBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter("asi", 30, 0)

	// 10% of 30 req/min rounds down to 3
	if limiter.burst != 3 {
		t.Errorf("Expected default burst 3, got %d", limiter.burst)
	}
	if limit := limiter.Limit(); limit != 30 {
		t.Errorf("Expected limit 30, got %f", limit)
	}
}

func TestNoOpLimiter(t *testing.T) {
	limiter := NewNoOpLimiter()

	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("NoOpLimiter should never fail: %v", err)
		}
		if !limiter.Allow() {
			t.Fatal("NoOpLimiter should always allow")
		}
	}

	if limiter.Limit() != -1 {
		t.Errorf("Expected limit -1, got %f", limiter.Limit())
	}
}

func TestRateLimitError_Unwrap(t *testing.T) {
	inner := context.DeadlineExceeded
	err := &RateLimitError{Provider: "asi", Limit: 30, Err: inner}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("RateLimitError should unwrap to its inner error")
	}
}
