package vaultpin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/core/session"
	"github.com/dmitrymomot/lifevault/pkg/hasher"
	"github.com/dmitrymomot/lifevault/pkg/ratelimiter"
)

// Config controls the attempt budget.
type Config struct {
	MaxAttempts int           `env:"VAULT_PIN_MAX_ATTEMPTS" envDefault:"5"`
	Lockout     time.Duration `env:"VAULT_PIN_LOCKOUT" envDefault:"15m"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Lockout: 15 * time.Minute}
}

// Session is the session shape the gate unlocks.
type Session = session.Session[account.SessionData]

// Gate sets, verifies and disables vault PINs.
type Gate struct {
	pins         account.PinStore
	hasher       *hasher.Hasher
	cfg          Config
	attemptStore ratelimiter.Store
	attempts     *ratelimiter.Bucket
	logger       *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithConfig sets the attempt budget. Non-positive values keep the defaults.
func WithConfig(cfg Config) Option {
	return func(g *Gate) {
		if cfg.MaxAttempts > 0 {
			g.cfg.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.Lockout > 0 {
			g.cfg.Lockout = cfg.Lockout
		}
	}
}

// WithAttemptStore sets the store that counts failures. Defaults to an in-memory store.
func WithAttemptStore(s ratelimiter.Store) Option {
	return func(g *Gate) {
		g.attemptStore = s
	}
}

// WithLogger sets the gate logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Gate.
func New(pins account.PinStore, h *hasher.Hasher, opts ...Option) (*Gate, error) {
	g := &Gate{
		pins:   pins,
		hasher: h,
		cfg:    DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.attemptStore == nil {
		g.attemptStore = ratelimiter.NewMemoryStore()
	}

	bucket, err := ratelimiter.NewBucket(g.attemptStore, ratelimiter.Config{
		Capacity:       g.cfg.MaxAttempts,
		RefillRate:     g.cfg.MaxAttempts,
		RefillInterval: g.cfg.Lockout,
	})
	if err != nil {
		return nil, fmt.Errorf("vault pin attempts: %w", err)
	}
	g.attempts = bucket
	g.logger = g.logger.With(logger.Component("vaultpin"))
	return g, nil
}

// ValidatePin checks the PIN format.
func ValidatePin(pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return ErrInvalidPin
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}

// SetPin hashes pin and stores it as the account's enabled PIN.
func (g *Gate) SetPin(ctx context.Context, accountID, pin string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}

	hash, err := g.hasher.Hash(pin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := g.pins.SavePin(ctx, accountID, account.PinRecord{Hash: hash, Enabled: true}); err != nil {
		return autherr.Unavailable(err)
	}
	if err := g.attempts.Reset(ctx, g.key(accountID)); err != nil {
		g.logger.WarnContext(ctx, "pin attempt counter reset failed", logger.AccountID(accountID), logger.Error(err))
	}

	g.logger.InfoContext(ctx, "vault pin set", logger.AccountID(accountID))
	return nil
}

// IsEnabled reports whether the account has an enabled PIN.
func (g *Gate) IsEnabled(ctx context.Context, accountID string) (bool, error) {
	rec, err := g.pins.GetPin(ctx, accountID)
	if errors.Is(err, account.ErrPinNotSet) {
		return false, nil
	}
	if err != nil {
		return false, autherr.Unavailable(err)
	}
	return rec.Enabled && rec.Hash != "", nil
}

// VerifyPin checks candidate against the stored hash. Every comparison spends one attempt
// before the hash is checked; a match restores the budget.
func (g *Gate) VerifyPin(ctx context.Context, accountID, candidate string) error {
	key := g.key(accountID)

	rec, err := g.pins.GetPin(ctx, accountID)
	if errors.Is(err, account.ErrPinNotSet) {
		return ErrNotEnabled
	}
	if err != nil {
		return autherr.Unavailable(err)
	}
	if !rec.Enabled || rec.Hash == "" {
		return ErrNotEnabled
	}

	res, err := g.spendAttempt(ctx, key)
	if err != nil {
		return err
	}

	// Malformed candidates still count as a failed attempt.
	ok := false
	if ValidatePin(candidate) == nil {
		ok, err = g.hasher.Verify(candidate, rec.Hash)
		if err != nil {
			return autherr.Unavailable(err)
		}
	}

	if !ok {
		g.logger.WarnContext(ctx, "vault pin rejected", logger.AccountID(accountID))
		if res.Remaining <= 0 {
			return autherr.Retry(autherr.ErrTooManyAttempts, res.RetryAfter())
		}
		return autherr.ErrInvalidCredential
	}

	if err := g.attempts.Reset(ctx, key); err != nil {
		g.logger.WarnContext(ctx, "pin attempt counter reset failed", logger.AccountID(accountID), logger.Error(err))
	}
	return nil
}

// spendAttempt takes one token from the budget, or fails with ErrTooManyAttempts when none
// is left. An exhausted bucket is not charged again.
func (g *Gate) spendAttempt(ctx context.Context, key string) (ratelimiter.Result, error) {
	status, err := g.attempts.Status(ctx, key)
	if err != nil {
		return ratelimiter.Result{}, autherr.Unavailable(err)
	}
	if status.Remaining <= 0 {
		return status, autherr.Retry(autherr.ErrTooManyAttempts, status.RetryAfter())
	}

	res, err := g.attempts.Allow(ctx, key)
	if err != nil {
		return ratelimiter.Result{}, autherr.Unavailable(err)
	}
	if !res.Allowed() {
		return res, autherr.Retry(autherr.ErrTooManyAttempts, res.RetryAfter())
	}
	return res, nil
}

// Disable turns the gate off after re-verifying the current PIN.
func (g *Gate) Disable(ctx context.Context, accountID, currentPin string) error {
	if err := g.VerifyPin(ctx, accountID, currentPin); err != nil {
		return err
	}
	if err := g.pins.SavePin(ctx, accountID, account.PinRecord{}); err != nil {
		return autherr.Unavailable(err)
	}
	g.logger.InfoContext(ctx, "vault pin disabled", logger.AccountID(accountID))
	return nil
}

// Unlock verifies pin for the session's account and returns the session marked unlocked.
// The caller persists the returned session.
func (g *Gate) Unlock(ctx context.Context, sess Session, pin string) (Session, error) {
	if sess.AccountID == "" {
		return sess, ErrNoSession
	}
	if err := g.VerifyPin(ctx, sess.AccountID, pin); err != nil {
		return sess, err
	}
	data := sess.Data
	data.VaultUnlockedAt = time.Now()
	sess.SetData(data)
	return sess, nil
}

// Lock clears the unlock marker and returns the updated session.
func (g *Gate) Lock(sess Session) Session {
	if sess.Data.VaultUnlockedAt.IsZero() {
		return sess
	}
	data := sess.Data
	data.VaultUnlockedAt = time.Time{}
	sess.SetData(data)
	return sess
}

// IsUnlocked reports whether sess passed the gate. Accounts without an enabled PIN are
// always unlocked.
func (g *Gate) IsUnlocked(ctx context.Context, sess Session) (bool, error) {
	enabled, err := g.IsEnabled(ctx, sess.AccountID)
	if err != nil {
		return false, err
	}
	if !enabled {
		return true, nil
	}
	return !sess.Data.VaultUnlockedAt.IsZero(), nil
}

func (g *Gate) key(accountID string) string {
	return "vaultpin:" + accountID
}
