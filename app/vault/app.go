package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/authenticator"
	"github.com/dmitrymomot/lifevault/core/config"
	"github.com/dmitrymomot/lifevault/core/devicetrust"
	"github.com/dmitrymomot/lifevault/core/email"
	"github.com/dmitrymomot/lifevault/core/health"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/core/login"
	"github.com/dmitrymomot/lifevault/core/pushauth"
	"github.com/dmitrymomot/lifevault/core/server"
	"github.com/dmitrymomot/lifevault/core/session"
	"github.com/dmitrymomot/lifevault/core/vaultpin"
	"github.com/dmitrymomot/lifevault/core/verification"
	"github.com/dmitrymomot/lifevault/pkg/broadcast"
	"github.com/dmitrymomot/lifevault/pkg/hasher"
	"github.com/dmitrymomot/lifevault/pkg/secrets"
)

// App wires the login orchestrator to its stores and background jobs.
type App struct {
	config Config
	logger *slog.Logger

	hasher   *hasher.Hasher
	accounts accountStore
	state    stateStores
	sender   email.EmailSender

	orchestrator *login.Orchestrator
	sessions     *session.Manager[account.SessionData]
	push         *pushauth.Channel
	notifier     *pushauth.BroadcastNotifier
	broadcaster  *broadcast.MemoryBroadcaster[pushauth.Event]
	revealer     *authenticator.SealedRevealer
	ops          *server.Server

	configLoaded bool
	closeOnce    sync.Once
	closers      []func() error
	checks       map[string]func(context.Context) error
}

// AppOption configures an App.
type AppOption func(*App) error

// NewApp builds the application. Configuration comes from the environment unless WithConfig
// is given. Backends are connected here, so ctx bounds the startup.
func NewApp(ctx context.Context, opts ...AppOption) (*App, error) {
	app := &App{checks: map[string]func(context.Context) error{}}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if !app.configLoaded {
		if err := config.Load(&app.config); err != nil {
			return nil, err
		}
	}
	if app.logger == nil {
		app.logger = newLogger(app.config)
	}

	if err := app.build(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func newLogger(cfg Config) *slog.Logger {
	if cfg.isProduction() {
		return logger.New(logger.WithProduction(cfg.AppName), logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	return logger.New(logger.WithDevelopment(cfg.AppName))
}

// WithConfig skips environment loading.
func WithConfig(cfg Config) AppOption {
	return func(app *App) error {
		app.config = cfg
		app.configLoaded = true
		return nil
	}
}

func WithLogger(l *slog.Logger) AppOption {
	return func(app *App) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		app.logger = l
		return nil
	}
}

// WithHasher overrides the argon2id parameters, mostly so tests can use cheap ones.
func WithHasher(h *hasher.Hasher) AppOption {
	return func(app *App) error {
		if h == nil {
			return errors.New("hasher cannot be nil")
		}
		app.hasher = h
		return nil
	}
}

// WithEmailSender replaces the configured mail driver.
func WithEmailSender(s email.EmailSender) AppOption {
	return func(app *App) error {
		if s == nil {
			return errors.New("email sender cannot be nil")
		}
		app.sender = s
		return nil
	}
}

func (a *App) build(ctx context.Context) error {
	log := a.logger.With(logger.Component("app"))

	if a.hasher == nil {
		h, err := hasher.New(hasher.DefaultParams())
		if err != nil {
			return err
		}
		a.hasher = h
	}

	accounts, err := a.openAccounts(ctx)
	if err != nil {
		return fmt.Errorf("account backend: %w", err)
	}
	a.accounts = accounts

	state, err := a.openState(ctx)
	if err != nil {
		return fmt.Errorf("state backend: %w", err)
	}
	a.state = state

	if a.sender == nil {
		sender, err := a.openSender()
		if err != nil {
			return fmt.Errorf("mail driver: %w", err)
		}
		a.sender = sender
	}

	appKey, err := a.appKey(log)
	if err != nil {
		return err
	}
	a.revealer, err = authenticator.NewSealedRevealer(appKey)
	if err != nil {
		return err
	}

	codes, err := verification.New(
		a.state.codes,
		verification.NewEmailDispatcher(a.sender,
			verification.WithProductName(a.config.ProductName),
			verification.WithCodeTTL(a.config.Verification.CodeTTL),
		),
		verification.WithConfig(a.config.Verification),
		verification.WithAttemptStore(a.state.attempts),
		verification.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	pins, err := vaultpin.New(a.accounts, a.hasher,
		vaultpin.WithConfig(a.config.Pin),
		vaultpin.WithAttemptStore(a.state.attempts),
		vaultpin.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	a.broadcaster = broadcast.NewMemoryBroadcaster[pushauth.Event](a.config.PushBuffer)
	a.closers = append(a.closers, a.broadcaster.Close)
	a.notifier = pushauth.NewBroadcastNotifier(a.broadcaster)
	a.push = pushauth.New(a.notifier,
		pushauth.WithConfig(a.config.Push),
		pushauth.WithLogger(a.logger),
	)
	a.closers = append(a.closers, a.push.Close)

	a.sessions = session.NewManager[account.SessionData](a.state.sessions,
		session.WithConfig(a.config.Session),
		session.WithLogger(a.logger),
	)

	var totpOpts []authenticator.Option
	if a.config.TOTPCacheSize > 0 {
		totpOpts = append(totpOpts, authenticator.WithCacheSize(a.config.TOTPCacheSize))
	}
	totpOpts = append(totpOpts, authenticator.WithLogger(a.logger))

	a.orchestrator, err = login.New(login.Deps{
		Directory:     a.accounts,
		Credentials:   a.accounts,
		Devices:       devicetrust.New(a.accounts, devicetrust.WithLogger(a.logger)),
		Codes:         codes,
		Push:          a.push,
		Sessions:      a.sessions,
		Pins:          pins,
		Authenticator: authenticator.NewService(a.revealer, totpOpts...),
	},
		login.WithConfig(a.config.Login),
		login.WithAttemptStore(a.state.attempts),
		login.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	if a.config.Ops.Addr != "" {
		a.ops, err = server.New(a.config.Ops, server.WithLogger(a.logger))
		if err != nil {
			return err
		}
	}

	log.InfoContext(ctx, "application ready",
		slog.String("accounts", a.config.AccountBackend),
		slog.String("state", a.config.StateBackend),
		slog.String("mail", a.config.MailDriver),
	)
	return nil
}

func (a *App) appKey(log *slog.Logger) ([]byte, error) {
	if a.config.AppKey != "" {
		key, err := secrets.ParseHexKey(a.config.AppKey)
		if err != nil {
			return nil, fmt.Errorf("SECRETS_APP_KEY: %w", err)
		}
		return key, nil
	}
	if a.config.isProduction() {
		return nil, errors.New("SECRETS_APP_KEY is required in production")
	}
	log.Warn("SECRETS_APP_KEY not set, sealed TOTP secrets will not survive a restart")
	return secrets.GenerateKey()
}

// Orchestrator returns the login orchestrator.
func (a *App) Orchestrator() *login.Orchestrator { return a.orchestrator }

// Notifier lets approving devices subscribe to push login requests for their account.
func (a *App) Notifier() *pushauth.BroadcastNotifier { return a.notifier }

// Sealer seals authenticator secrets for storage as entry references.
func (a *App) Sealer() *authenticator.SealedRevealer { return a.revealer }

func (a *App) Logger() *slog.Logger { return a.logger }

// Register creates an account in the configured account backend.
func (a *App) Register(ctx context.Context, email, password string, profile account.Profile) (account.Account, error) {
	acc, err := a.accounts.Create(ctx, email, password, profile)
	if err != nil {
		return account.Account{}, err
	}
	a.logger.InfoContext(ctx, "account registered", logger.AccountID(acc.ID), logger.Email(acc.Email))
	return acc, nil
}

// OpsServer returns the probe listener, or nil when Config.Ops.Addr is empty.
func (a *App) OpsServer() *server.Server { return a.ops }

// Run starts the background jobs and the probe listener, and blocks until ctx is cancelled or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.sessions.Run(ctx) })
	for _, job := range a.state.jobs {
		g.Go(job(ctx))
	}
	if a.ops != nil {
		g.Go(a.ops.Run(ctx, health.Handler(a.logger, a.Healthcheck)))
	}

	a.logger.InfoContext(ctx, "background jobs started", slog.Int("jobs", 1+len(a.state.jobs)))
	err := g.Wait()
	a.logger.Info("background jobs stopped")
	return err
}

// Healthcheck pings every connected backend.
func (a *App) Healthcheck(ctx context.Context) error {
	var errs []error
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases connections and stops pending push requests. Safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			if cerr := a.closers[i](); cerr != nil {
				errs = append(errs, cerr)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}
