package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/pkg/ratelimiter"
	"github.com/dmitrymomot/lifevault/pkg/totp"
)

// Purpose scopes a code to one use.
type Purpose string

const (
	PurposeLogin        Purpose = "login-2fa"
	PurposeRegistration Purpose = "registration"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeLogin || p == PurposeRegistration
}

// Dispatcher delivers a code out of band. Failures must be returned, never swallowed.
type Dispatcher interface {
	SendCode(ctx context.Context, to, code string, purpose Purpose) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, to, code string, purpose Purpose) error

func (f DispatcherFunc) SendCode(ctx context.Context, to, code string, purpose Purpose) error {
	return f(ctx, to, code, purpose)
}

// Channel issues and verifies codes.
type Channel struct {
	store        Store
	dispatcher   Dispatcher
	cfg          Config
	attempts     *ratelimiter.Bucket
	attemptStore ratelimiter.Store
	generate     func(length int) (string, error)
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithConfig sets lifetime and limit parameters. Zero fields fall back to DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(c *Channel) {
		c.cfg = cfg.withDefaults()
	}
}

// WithAttemptStore sets the store that counts wrong guesses. Defaults to an in-memory store.
func WithAttemptStore(s ratelimiter.Store) Option {
	return func(c *Channel) {
		c.attemptStore = s
	}
}

// WithClock overrides the clock used for expiry and cooldown decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCodeGenerator overrides the code source. Meant for tests.
func WithCodeGenerator(fn func(length int) (string, error)) Option {
	return func(c *Channel) {
		if fn != nil {
			c.generate = fn
		}
	}
}

// WithLogger sets the channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Channel.
func New(store Store, dispatcher Dispatcher, opts ...Option) (*Channel, error) {
	c := &Channel{
		store:      store,
		dispatcher: dispatcher,
		cfg:        DefaultConfig(),
		generate:   totp.GenerateNumericCode,
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.attemptStore == nil {
		c.attemptStore = ratelimiter.NewMemoryStore()
	}

	bucket, err := ratelimiter.NewBucket(c.attemptStore, ratelimiter.Config{
		Capacity:       c.cfg.MaxAttempts,
		RefillRate:     c.cfg.MaxAttempts,
		RefillInterval: c.cfg.Retention(),
	})
	if err != nil {
		return nil, fmt.Errorf("verification attempts: %w", err)
	}
	c.attempts = bucket
	c.logger = c.logger.With(logger.Component("verification"))

	return c, nil
}

// Config returns the effective configuration.
func (c *Channel) Config() Config {
	return c.cfg
}

// Issue generates a new code for (email, purpose), replaces any previous one and dispatches it.
func (c *Channel) Issue(ctx context.Context, email string, purpose Purpose) error {
	key, email, err := c.key(email, purpose)
	if err != nil {
		return err
	}

	now := c.now()

	prev, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if wait := c.cfg.ResendCooldown - now.Sub(prev.IssuedAt); wait > 0 {
			return autherr.Retry(autherr.ErrCooldown, wait)
		}
	case !errors.Is(err, ErrNotFound):
		return autherr.Unavailable(err)
	}

	code, err := c.generate(c.cfg.CodeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	if err := c.store.Save(ctx, key, Record{Code: code, IssuedAt: now}, c.cfg.Retention()); err != nil {
		return autherr.Unavailable(err)
	}
	if err := c.attempts.Reset(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "attempt counter reset failed", logger.Purpose(string(purpose)), logger.Error(err))
	}

	if err := c.dispatcher.SendCode(ctx, email, code, purpose); err != nil {
		// Roll back only our own code; a concurrent issue may already have replaced it.
		if _, rbErr := c.store.Consume(context.WithoutCancel(ctx), key, code); rbErr != nil {
			c.logger.ErrorContext(ctx, "failed to roll back undelivered code",
				logger.Email(email), logger.Purpose(string(purpose)), logger.Error(rbErr))
		}
		c.logger.WarnContext(ctx, "verification code dispatch failed",
			logger.Email(email), logger.Purpose(string(purpose)), logger.Error(err))
		return autherr.Unavailable(err)
	}

	c.logger.InfoContext(ctx, "verification code issued", logger.Email(email), logger.Purpose(string(purpose)))
	return nil
}

// Resend is Issue under another name; the cooldown applies.
func (c *Channel) Resend(ctx context.Context, email string, purpose Purpose) error {
	return c.Issue(ctx, email, purpose)
}

// Verify checks candidate against the current code and consumes it on success.
//
// It returns nil on success, autherr.ErrInvalidCredential on mismatch or when no code exists,
// autherr.ErrExpired after the TTL and autherr.ErrTooManyAttempts once the guess budget is spent.
func (c *Channel) Verify(ctx context.Context, email string, purpose Purpose, candidate string) error {
	key, email, err := c.key(email, purpose)
	if err != nil {
		return err
	}

	rec, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return autherr.ErrInvalidCredential
	}
	if err != nil {
		return autherr.Unavailable(err)
	}

	if c.now().Sub(rec.IssuedAt) >= c.cfg.CodeTTL {
		return autherr.ErrExpired
	}

	res, err := c.spendAttempt(ctx, key)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(candidate)) != 1 {
		if res.Remaining > 0 {
			return autherr.ErrInvalidCredential
		}
		return c.revoke(ctx, key, email, purpose, rec.Code)
	}

	consumed, err := c.store.Consume(ctx, key, candidate)
	if err != nil {
		return autherr.Unavailable(err)
	}
	if !consumed {
		return autherr.ErrInvalidCredential
	}
	if err := c.attempts.Reset(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "attempt counter reset failed", logger.Purpose(string(purpose)), logger.Error(err))
	}

	c.logger.InfoContext(ctx, "verification code consumed", logger.Email(email), logger.Purpose(string(purpose)))
	return nil
}

// spendAttempt charges one guess against the code before it is compared. The bucket refills
// once per retention period, so an exhausted code never regains guesses.
func (c *Channel) spendAttempt(ctx context.Context, key string) (ratelimiter.Result, error) {
	status, err := c.attempts.Status(ctx, key)
	if err != nil {
		return ratelimiter.Result{}, autherr.Unavailable(err)
	}
	if status.Remaining <= 0 {
		return status, autherr.ErrTooManyAttempts
	}

	res, err := c.attempts.Allow(ctx, key)
	if err != nil {
		return ratelimiter.Result{}, autherr.Unavailable(err)
	}
	if !res.Allowed() {
		return res, autherr.ErrTooManyAttempts
	}
	return res, nil
}

// revoke drops the code once its guess budget is spent.
func (c *Channel) revoke(ctx context.Context, key, email string, purpose Purpose, current string) error {
	revoked, err := c.store.Consume(ctx, key, current)
	if err != nil {
		return autherr.Unavailable(err)
	}
	if revoked {
		c.logger.WarnContext(ctx, "verification code revoked after too many attempts",
			logger.Email(email), logger.Purpose(string(purpose)))
	}
	return autherr.ErrTooManyAttempts
}

func (c *Channel) key(email string, purpose Purpose) (key, normalized string, err error) {
	if !purpose.Valid() {
		return "", "", ErrInvalidPurpose
	}
	normalized = account.NormalizeEmail(email)
	if normalized == "" {
		return "", "", ErrInvalidEmail
	}
	return string(purpose) + ":" + normalized, normalized, nil
}
