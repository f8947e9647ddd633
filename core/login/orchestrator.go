package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/authenticator"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/devicetrust"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/core/pushauth"
	"github.com/dmitrymomot/lifevault/core/session"
	"github.com/dmitrymomot/lifevault/core/vaultpin"
	"github.com/dmitrymomot/lifevault/core/verification"
	"github.com/dmitrymomot/lifevault/pkg/ratelimiter"
)

// Session is the explicit session handed out once a flow authenticates.
type Session = session.Session[account.SessionData]

// Session methods recorded in SessionData.Method.
const (
	MethodTrustedDevice = "password+trusted_device"
	MethodCode          = "password+code"
	MethodPush          = "push"
)

// Deps are the collaborators of an Orchestrator. All of them are required.
type Deps struct {
	Directory     account.Directory
	Credentials   account.CredentialStore
	Devices       *devicetrust.Registry
	Codes         *verification.Channel
	Push          *pushauth.Channel
	Sessions      *session.Manager[account.SessionData]
	Pins          *vaultpin.Gate
	Authenticator *authenticator.Service
}

func (d Deps) validate() error {
	var missing []string
	if d.Directory == nil {
		missing = append(missing, "directory")
	}
	if d.Credentials == nil {
		missing = append(missing, "credential store")
	}
	if d.Devices == nil {
		missing = append(missing, "device registry")
	}
	if d.Codes == nil {
		missing = append(missing, "verification channel")
	}
	if d.Push == nil {
		missing = append(missing, "push channel")
	}
	if d.Sessions == nil {
		missing = append(missing, "session manager")
	}
	if d.Pins == nil {
		missing = append(missing, "pin gate")
	}
	if d.Authenticator == nil {
		missing = append(missing, "authenticator")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Orchestrator composes the authentication components into the sign-in state machine and the
// post-login operations that act on an issued session.
type Orchestrator struct {
	deps     Deps
	attempts *ratelimiter.Bucket
	logger   *slog.Logger
}

type settings struct {
	cfg    Config
	store  ratelimiter.Store
	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*settings)

// WithConfig overrides the password attempt budget.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg.withDefaults()
	}
}

// WithAttemptStore sets where password attempts are counted. Defaults to process memory.
func WithAttemptStore(store ratelimiter.Store) Option {
	return func(s *settings) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// New validates deps and builds an Orchestrator.
func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	s := &settings{
		cfg:    DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = ratelimiter.NewMemoryStore()
	}

	attempts, err := ratelimiter.NewBucket(s.store, ratelimiter.Config{
		Capacity:       s.cfg.PasswordMaxAttempts,
		RefillRate:     s.cfg.PasswordMaxAttempts,
		RefillInterval: s.cfg.PasswordWindow,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &Orchestrator{
		deps:     deps,
		attempts: attempts,
		logger:   s.logger.With(logger.Component("login")),
	}, nil
}

// Start begins a sign-in flow for deviceID.
func (o *Orchestrator) Start(deviceID string) *Flow {
	return NewFlow(deviceID)
}

// CheckAccountExists reports whether an account uses email.
func (o *Orchestrator) CheckAccountExists(ctx context.Context, email string) (bool, error) {
	_, err := o.lookup(ctx, email)
	if errors.Is(err, account.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SubmitEmail handles the email step. A known email advances the flow to CollectingPassword
// with profile hints preloaded. An unknown email keeps the flow where it is and marks it as
// needing registration.
func (o *Orchestrator) SubmitEmail(ctx context.Context, f *Flow, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expectLocked(StateCollectingEmail); err != nil {
		return err
	}

	acc, err := o.lookup(ctx, email)
	if errors.Is(err, account.ErrNotFound) {
		f.email = account.NormalizeEmail(email)
		f.accountID = ""
		f.hints = account.Hints{}
		f.registration = true
		o.logger.DebugContext(ctx, "email not registered", logger.Email(f.email))
		return nil
	}
	if err != nil {
		return err
	}

	f.recognizeLocked(acc)
	f.state = StateCollectingPassword
	return nil
}

// BeginPasswordLogin checks the password for the flow's email. Failures keep the flow at
// CollectingPassword and always report autherr.ErrInvalidCredential.
func (o *Orchestrator) BeginPasswordLogin(ctx context.Context, f *Flow, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expectLocked(StateCollectingPassword); err != nil {
		return err
	}

	cred, err := o.verifyPassword(ctx, f.email, password)
	if err != nil {
		return err
	}

	f.credential = &cred
	f.accountID = cred.AccountID
	f.state = StateCheckingDeviceTrust
	o.logger.InfoContext(ctx, "password accepted",
		logger.AccountID(f.accountID),
		logger.Step(string(f.state)),
	)
	return nil
}

// IsDeviceTrusted reports whether the flow's device may skip the emailed code.
// It is false until the password step succeeded.
func (o *Orchestrator) IsDeviceTrusted(ctx context.Context, f *Flow) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credential == nil {
		return false
	}
	return o.deps.Devices.IsTrusted(ctx, f.accountID, f.deviceID)
}

// CheckDeviceTrust authenticates a trusted device directly and sends a sign-in code otherwise.
func (o *Orchestrator) CheckDeviceTrust(ctx context.Context, f *Flow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expectLocked(StateCheckingDeviceTrust); err != nil {
		return err
	}

	if o.deps.Devices.IsTrusted(ctx, f.accountID, f.deviceID) {
		return o.authenticateLocked(ctx, f, MethodTrustedDevice)
	}
	return o.issueCodeLocked(ctx, f)
}

// IssueLoginCode sends a sign-in code. From CheckingDeviceTrust it advances the flow to
// AwaitingCode; from AwaitingCode it replaces the outstanding code.
func (o *Orchestrator) IssueLoginCode(ctx context.Context, f *Flow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expectLocked(StateCheckingDeviceTrust, StateAwaitingCode); err != nil {
		return err
	}
	if f.state == StateAwaitingCode {
		return o.deps.Codes.Resend(ctx, f.email, verification.PurposeLogin)
	}
	return o.issueCodeLocked(ctx, f)
}

// VerifyLoginCode checks the emailed code. On success the device becomes trusted and the flow
// authenticates. A wrong code reports autherr.ErrInvalidCredential and an aged-out one
// autherr.ErrExpired; either way the flow stays at AwaitingCode so the caller can retry or resend.
func (o *Orchestrator) VerifyLoginCode(ctx context.Context, f *Flow, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expectLocked(StateAwaitingCode); err != nil {
		return err
	}

	if err := o.deps.Codes.Verify(ctx, f.email, verification.PurposeLogin, code); err != nil {
		return err
	}

	if err := o.deps.Devices.Register(ctx, f.accountID, f.deviceID); err != nil {
		o.logger.WarnContext(ctx, "device not registered after verified login",
			logger.AccountID(f.accountID),
			logger.DeviceID(f.deviceID),
			logger.Error(err),
		)
	}

	if err := o.authenticateLocked(ctx, f, MethodCode); err != nil {
		// The code is spent; the user has to start over.
		f.failLocked(err)
		return err
	}
	return nil
}

// Restart abandons the flow and returns it to CollectingEmail. A pending push request is
// cancelled and an unused credential session is ended.
func (o *Orchestrator) Restart(ctx context.Context, f *Flow) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateAwaitingPush && f.pushRequestID != "" {
		if err := o.deps.Push.Cancel(ctx, f.pushRequestID); err != nil && !isSettled(err) {
			o.logger.WarnContext(ctx, "push request not cancelled on restart",
				logger.PushRequestID(f.pushRequestID),
				logger.Error(err),
			)
		}
	}
	if f.state != StateAuthenticated && f.credential != nil {
		o.endCredential(ctx, *f.credential)
	}

	f.resetLocked()
	f.reason = nil
}

func (o *Orchestrator) issueCodeLocked(ctx context.Context, f *Flow) error {
	err := o.deps.Codes.Issue(ctx, f.email, verification.PurposeLogin)
	switch {
	case err == nil:
	case errors.Is(err, autherr.ErrCooldown):
		// A code sent moments ago is still outstanding and valid.
		o.logger.InfoContext(ctx, "reusing recently sent login code", logger.AccountID(f.accountID))
	default:
		return err
	}
	f.state = StateAwaitingCode
	return nil
}

func (o *Orchestrator) authenticateLocked(ctx context.Context, f *Flow, method string) error {
	data := account.SessionData{Email: f.email, Method: method}
	if f.credential != nil {
		data.CredentialToken = f.credential.Token
	}

	sess, err := o.deps.Sessions.Issue(ctx, f.accountID, f.deviceID, data)
	if err != nil {
		return autherr.Unavailable(err)
	}

	f.authenticateLocked(sess)
	o.logger.InfoContext(ctx, "login completed",
		logger.AccountID(f.accountID),
		logger.DeviceID(f.deviceID),
		logger.Action(method),
	)
	return nil
}

func (o *Orchestrator) lookup(ctx context.Context, email string) (account.Account, error) {
	email = account.NormalizeEmail(email)
	if err := account.ValidateEmail(email); err != nil {
		return account.Account{}, err
	}
	acc, err := o.deps.Directory.LookupAccount(ctx, email)
	if errors.Is(err, account.ErrNotFound) {
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, autherr.Unavailable(err)
	}
	return acc, nil
}

// verifyPassword checks a password against the per-email attempt budget. The attempt is
// charged before the credential store sees the password; a match restores the budget.
func (o *Orchestrator) verifyPassword(ctx context.Context, email, password string) (account.CredentialSession, error) {
	key := "login:" + email

	status, err := o.attempts.Status(ctx, key)
	if err != nil {
		return account.CredentialSession{}, autherr.Unavailable(err)
	}
	if status.Remaining <= 0 {
		return account.CredentialSession{}, autherr.Retry(autherr.ErrTooManyAttempts, status.RetryAfter())
	}
	res, err := o.attempts.Allow(ctx, key)
	if err != nil {
		return account.CredentialSession{}, autherr.Unavailable(err)
	}
	if !res.Allowed() {
		return account.CredentialSession{}, autherr.Retry(autherr.ErrTooManyAttempts, res.RetryAfter())
	}

	cred, err := o.deps.Credentials.VerifyPassword(ctx, email, password)
	if errors.Is(err, autherr.ErrInvalidCredential) {
		o.logger.WarnContext(ctx, "password rejected", logger.Email(email))
		if res.Remaining <= 0 {
			return account.CredentialSession{}, autherr.Retry(autherr.ErrTooManyAttempts, res.RetryAfter())
		}
		return account.CredentialSession{}, autherr.ErrInvalidCredential
	}
	if err != nil {
		return account.CredentialSession{}, autherr.Unavailable(err)
	}

	if err := o.attempts.Reset(ctx, key); err != nil {
		o.logger.WarnContext(ctx, "password attempt counter reset failed", logger.Email(email), logger.Error(err))
	}
	return cred, nil
}

func (o *Orchestrator) endCredential(ctx context.Context, cred account.CredentialSession) {
	if err := o.deps.Credentials.EndSession(ctx, cred); err != nil {
		o.logger.WarnContext(ctx, "credential session not ended",
			logger.AccountID(cred.AccountID),
			logger.Error(err),
		)
	}
}

func isSettled(err error) bool {
	return errors.Is(err, pushauth.ErrAlreadyResolved) ||
		errors.Is(err, pushauth.ErrNotFound) ||
		errors.Is(err, autherr.ErrExpired)
}
