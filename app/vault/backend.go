package vault

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/config"
	"github.com/dmitrymomot/lifevault/core/email"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/core/session"
	"github.com/dmitrymomot/lifevault/core/verification"
	"github.com/dmitrymomot/lifevault/integration/database/pg"
	"github.com/dmitrymomot/lifevault/integration/database/redis"
	"github.com/dmitrymomot/lifevault/integration/email/postmark"
	"github.com/dmitrymomot/lifevault/integration/email/smtp"
	"github.com/dmitrymomot/lifevault/pkg/ratelimiter"
)

// accountStore is satisfied by account.MemoryStore and pg.AccountStore.
type accountStore interface {
	account.Directory
	account.CredentialStore
	account.ProfileStore
	account.TrustedDeviceStore
	account.PinStore
	Create(ctx context.Context, email, password string, profile account.Profile) (account.Account, error)
}

// stateStores hold the short-lived state: codes, sessions and attempt counters.
type stateStores struct {
	codes    verification.Store
	sessions session.Store[account.SessionData]
	attempts ratelimiter.Store
	jobs     []func(context.Context) func() error
}

func (a *App) openAccounts(ctx context.Context) (accountStore, error) {
	switch a.config.AccountBackend {
	case "", BackendMemory:
		return account.NewMemoryStore(a.hasher), nil

	case BackendPostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.checks["postgres"] = pg.Healthcheck(pool)

		if err := pg.Migrate(ctx, pool, cfg, a.logger.With(logger.Component("migrate"))); err != nil {
			return nil, err
		}
		return pg.NewAccountStore(pool, a.hasher), nil

	default:
		return nil, fmt.Errorf("unknown account backend %q", a.config.AccountBackend)
	}
}

func (a *App) openState(ctx context.Context) (stateStores, error) {
	switch a.config.StateBackend {
	case "", BackendMemory:
		attempts := ratelimiter.NewMemoryStore(
			ratelimiter.WithMemoryStoreLogger(a.logger.With(logger.Component("ratelimiter"))),
		)
		return stateStores{
			codes:    verification.NewMemoryStore(),
			sessions: session.NewMemoryStore[account.SessionData](),
			attempts: attempts,
			jobs:     []func(context.Context) func() error{attempts.Run},
		}, nil

	case BackendRedis:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return stateStores{}, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return stateStores{}, err
		}
		a.closers = append(a.closers, client.Close)
		a.checks["redis"] = redis.Healthcheck(client)

		return stateStores{
			codes:    redis.NewVerificationStore(client, cfg.KeyPrefix),
			sessions: redis.NewSessionStore[account.SessionData](client, cfg.KeyPrefix),
			attempts: redis.NewRateLimitStore(client, cfg.KeyPrefix),
		}, nil

	default:
		return stateStores{}, fmt.Errorf("unknown state backend %q", a.config.StateBackend)
	}
}

func (a *App) openSender() (email.EmailSender, error) {
	switch a.config.MailDriver {
	case "", MailDev:
		return email.NewDevSender(a.config.EmailDevDir), nil

	case MailSMTP:
		var cfg smtp.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := smtp.New(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil

	case MailPostmark:
		var cfg postmark.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := postmark.New(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown mail driver %q", a.config.MailDriver)
	}
}
