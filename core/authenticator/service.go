package authenticator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/cache"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/pkg/totp"
)

// DefaultCacheSize bounds the number of revealed secrets kept in memory.
const DefaultCacheSize = 256

type cacheKey struct {
	accountID string
	ref       string
}

// Service renders codes for entries.
type Service struct {
	revealer Revealer
	secrets  *cache.LRUCache[cacheKey, []byte]
	now      func() time.Time
	logger   *slog.Logger
}

type serviceOptions struct {
	cacheSize int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

// WithCacheSize sets how many revealed secrets are kept.
func WithCacheSize(n int) Option {
	return func(o *serviceOptions) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewService creates a Service backed by revealer.
func NewService(revealer Revealer, opts ...Option) *Service {
	o := serviceOptions{
		cacheSize: DefaultCacheSize,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := cache.NewLRUCache[cacheKey, []byte](o.cacheSize)
	c.SetEvictCallback(func(_ cacheKey, secret []byte) {
		clear(secret)
	})

	return &Service{
		revealer: revealer,
		secrets:  c,
		now:      o.now,
		logger:   o.logger.With(logger.Component("authenticator")),
	}
}

// CurrentCode returns the code of entry for the current time window.
func (s *Service) CurrentCode(ctx context.Context, entry Entry, scope AccessScope) (Code, error) {
	if err := entry.Validate(); err != nil {
		return Code{}, err
	}
	if !scope.Reveal || scope.AccountID == "" {
		return Code{}, autherr.ErrNotPermitted
	}

	secret, err := s.secret(ctx, entry, scope)
	if err != nil {
		return Code{}, err
	}
	defer clear(secret)

	params := entry.Params()
	now := s.now()
	code, err := totp.Generate(secret, params, now)
	if err != nil {
		return Code{}, fmt.Errorf("generate code: %w", err)
	}

	remaining := totp.RemainingSeconds(params.Period, now)
	return Code{
		Code:             code,
		RemainingSeconds: remaining,
		Period:           params.Period,
		ValidUntil:       now.Truncate(time.Second).Add(time.Duration(remaining) * time.Second),
	}, nil
}

// Forget drops a cached secret, e.g. after the entry was deleted or re-keyed.
func (s *Service) Forget(accountID, secretRef string) {
	s.secrets.Remove(cacheKey{accountID: accountID, ref: secretRef})
}

// Purge drops every cached secret.
func (s *Service) Purge() {
	s.secrets.Clear()
}

func (s *Service) secret(ctx context.Context, entry Entry, scope AccessScope) ([]byte, error) {
	key := cacheKey{accountID: scope.AccountID, ref: entry.SecretRef}
	if secret, ok := s.secrets.Get(key); ok {
		return slices.Clone(secret), nil
	}

	secret, err := s.revealer.Reveal(ctx, entry.SecretRef, scope)
	switch {
	case err == nil:
	case errors.Is(err, autherr.ErrNotPermitted):
		s.logger.WarnContext(ctx, "secret reveal denied", logger.AccountID(scope.AccountID))
		return nil, err
	case errors.Is(err, ErrSecretNotFound):
		return nil, err
	default:
		return nil, autherr.Unavailable(err)
	}

	s.secrets.Put(key, secret)
	return slices.Clone(secret), nil
}
