package resilience

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/mobilitykit/errors"
)

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies the guarded backend in errors.
	Name string
	// Rate is the number of requests allowed per second.
	Rate float64
	// Burst is the bucket size. Defaults to Rate, at least 1.
	Burst int
	// MaxWait bounds how long Wait blocks for a token. 0 waits as long as
	// ctx allows.
	MaxWait time.Duration
}

// RateLimiter is a token bucket bounding the request rate to one backend.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a full bucket; Rate defaults to 10 per second.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = max(int(config.Rate), 1)
	}
	rl := &RateLimiter{config: config, now: time.Now}
	rl.tokens = float64(config.Burst)
	rl.lastRefill = rl.now()
	return rl
}

// Allow takes a token without blocking.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available. When the wait would exceed MaxWait
// it returns a SERVICE_UNAVAILABLE AppError at once; a cancelled ctx returns
// ctx.Err() and gives the reserved token back.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	wait, ok := rl.reserve()
	if !ok {
		return rl.limited()
	}
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		rl.mu.Lock()
		rl.tokens++
		rl.mu.Unlock()
		return ctx.Err()
	}
}

// reserve takes a token, possibly driving the bucket negative, and returns
// how long the caller must wait for it.
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}
	wait := time.Duration((1 - rl.tokens) / rl.config.Rate * float64(time.Second))
	if rl.config.MaxWait > 0 && wait > rl.config.MaxWait {
		return 0, false
	}
	rl.tokens--
	return wait, true
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.config.Rate
	rl.lastRefill = now
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

func (rl *RateLimiter) limited() error {
	return errors.New(errors.ErrCodeServiceUnavailable,
		"rate limit exceeded for "+rl.config.Name, http.StatusServiceUnavailable).
		WithDetail("backend", rl.config.Name)
}

// Tokens returns the number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}
