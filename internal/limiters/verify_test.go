package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goTrust/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg VerifyConfig) (*miniredis.Miniredis, *VerifyLimiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewVerifyLimiter(rdb, cfg)
}

func TestVerifyLimiterThrottlesAfterBudget(t *testing.T) {
	mr, l := newTestLimiter(t, VerifyConfig{MaxFailures: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := l.Check(ctx, "alice"); err != nil {
			t.Fatalf("attempt %d unexpectedly throttled: %v", i, err)
		}
		spent, err := l.RecordFailure(ctx, "alice")
		if err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
		if spent != (i == 3) {
			t.Fatalf("attempt %d: spent=%v", i, spent)
		}
	}

	if err := l.Check(ctx, "alice"); !errors.Is(err, rate.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Check(ctx, "bob"); err != nil {
		t.Fatalf("other users must not be throttled: %v", err)
	}
	if ttl := mr.TTL("vf:alice"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Check(ctx, "alice"); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestVerifyLimiterReset(t *testing.T) {
	_, l := newTestLimiter(t, VerifyConfig{MaxFailures: 1, Window: time.Minute})
	ctx := context.Background()

	if _, err := l.RecordFailure(ctx, "alice"); err != nil {
		t.Fatalf("RecordFailure error: %v", err)
	}
	if n, _ := l.Failures(ctx, "alice"); n != 1 {
		t.Fatalf("expected 1 failure, got %d", n)
	}
	if err := l.Reset(ctx, "alice"); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if err := l.Check(ctx, "alice"); err != nil {
		t.Fatalf("expected reset to clear throttle, got %v", err)
	}
}

func TestVerifyLimiterNilAndEmptyUser(t *testing.T) {
	var l *VerifyLimiter
	ctx := context.Background()

	if err := l.Check(ctx, "alice"); err != nil {
		t.Fatalf("nil Check: %v", err)
	}
	if spent, err := l.RecordFailure(ctx, "alice"); spent || err != nil {
		t.Fatalf("nil RecordFailure: %v %v", spent, err)
	}
	if err := l.Reset(ctx, "alice"); err != nil {
		t.Fatalf("nil Reset: %v", err)
	}

	_, live := newTestLimiter(t, VerifyConfig{MaxFailures: 1, Window: time.Minute})
	if spent, err := live.RecordFailure(ctx, ""); spent || err != nil {
		t.Fatalf("empty user must be ignored: %v %v", spent, err)
	}
}
