package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/goTrust/internal/rate"
	"github.com/redis/go-redis/v9"
)

// VerifyConfig sets the failure budget per user.
type VerifyConfig struct {
	MaxFailures int
	Window      time.Duration
}

// VerifyLimiter throttles password verification after repeated failures.
type VerifyLimiter struct {
	counter *rate.Counter
	config  VerifyConfig
}

// NewVerifyLimiter returns a limiter keyed under "vf:".
func NewVerifyLimiter(redisClient redis.UniversalClient, cfg VerifyConfig) *VerifyLimiter {
	return &VerifyLimiter{counter: rate.NewCounter(redisClient), config: cfg}
}

func (l *VerifyLimiter) key(userID string) string {
	return "vf:" + userID
}

// Check returns rate.ErrRateLimited once userID has MaxFailures failures in
// the current window.
func (l *VerifyLimiter) Check(ctx context.Context, userID string) error {
	if l == nil || userID == "" {
		return nil
	}
	return l.counter.Allow(ctx, l.key(userID), l.config.MaxFailures)
}

// RecordFailure counts one failed verification and reports whether the
// budget is now spent.
func (l *VerifyLimiter) RecordFailure(ctx context.Context, userID string) (bool, error) {
	if l == nil || userID == "" {
		return false, nil
	}

	count, err := l.counter.Incr(ctx, l.key(userID), l.config.Window)
	if err != nil {
		return false, err
	}
	return count >= int64(l.config.MaxFailures), nil
}

// Reset clears the failure count, typically after a successful verification.
func (l *VerifyLimiter) Reset(ctx context.Context, userID string) error {
	if l == nil || userID == "" {
		return nil
	}
	return l.counter.Reset(ctx, l.key(userID))
}

// Failures returns the failure count in the current window.
func (l *VerifyLimiter) Failures(ctx context.Context, userID string) (int, error) {
	if l == nil || userID == "" {
		return 0, nil
	}
	n, err := l.counter.Get(ctx, l.key(userID))
	return int(n), err
}
