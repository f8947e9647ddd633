package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Config describes a token bucket.
type Config struct {
	Capacity       int           // Maximum tokens (burst size)
	RefillRate     int           // Tokens added per interval
	RefillInterval time.Duration // Interval between refills
}

// Validate reports whether the bucket parameters are usable.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidConfig)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive", ErrInvalidConfig)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Store persists bucket state. ConsumeTokens always subtracts, so remaining may go negative;
// a negative balance is repaid by later refills before requests are allowed again.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Result is the outcome of a consumption attempt.
type Result struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	refillRate int
	interval   time.Duration
}

// Allowed reports whether the request fit into the bucket.
func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter estimates how long until a single token is available again.
func (r Result) RetryAfter() time.Duration {
	if r.Remaining > 0 || r.refillRate <= 0 {
		return 0
	}
	needed := 1 - r.Remaining
	intervals := (needed + r.refillRate - 1) / r.refillRate
	wait := time.Until(r.ResetAt) + time.Duration(intervals-1)*r.interval
	if wait < 0 {
		return 0
	}
	return wait
}

// RateLimiter is the contract consumed by services.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (Result, error)
	AllowN(ctx context.Context, key string, n int) (Result, error)
	Reset(ctx context.Context, key string) error
}

// Bucket implements RateLimiter on top of a Store.
type Bucket struct {
	store  Store
	config Config
}

// NewBucket validates config and returns a limiter backed by store.
func NewBucket(store Store, config Config) (*Bucket, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, config: config}, nil
}

// Allow consumes one token for key.
func (b *Bucket) Allow(ctx context.Context, key string) (Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens for key.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (Result, error) {
	if n <= 0 {
		return Result{}, ErrInvalidTokenCount
	}
	return b.consume(ctx, key, n)
}

// Status reports the bucket state without consuming tokens.
func (b *Bucket) Status(ctx context.Context, key string) (Result, error) {
	return b.consume(ctx, key, 0)
}

// Reset restores key to full capacity.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}

func (b *Bucket) consume(ctx context.Context, key string, n int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.config)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Result{
		Limit:      b.config.Capacity,
		Remaining:  remaining,
		ResetAt:    resetAt,
		refillRate: b.config.RefillRate,
		interval:   b.config.RefillInterval,
	}, nil
}
