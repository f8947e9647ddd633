package login_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/authenticator"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/devicetrust"
	"github.com/dmitrymomot/lifevault/core/login"
	"github.com/dmitrymomot/lifevault/core/pushauth"
	"github.com/dmitrymomot/lifevault/core/session"
	"github.com/dmitrymomot/lifevault/core/vaultpin"
	"github.com/dmitrymomot/lifevault/core/verification"
	"github.com/dmitrymomot/lifevault/pkg/hasher"
	"github.com/dmitrymomot/lifevault/pkg/secrets"
)

const (
	testEmail    = "a@x.com"
	testPassword = "correct-horse"
	testCode     = "123456"
)

type outbox struct {
	mu    sync.Mutex
	codes []string
	fail  error
}

func (o *outbox) SendCode(_ context.Context, _, code string, _ verification.Purpose) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.codes = append(o.codes, code)
	return nil
}

func (o *outbox) sent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.codes)
}

// hookNotifier runs an optional callback for every push event.
type hookNotifier struct {
	mu   sync.Mutex
	hook func(pushauth.Event)
}

func (n *hookNotifier) Notify(_ context.Context, ev pushauth.Event) error {
	n.mu.Lock()
	hook := n.hook
	n.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
	return nil
}

func (n *hookNotifier) set(hook func(pushauth.Event)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hook = hook
}

type fixture struct {
	orch      *login.Orchestrator
	accounts  *account.MemoryStore
	devices   *devicetrust.Registry
	push      *pushauth.Channel
	notify    *hookNotifier
	sealer    *authenticator.SealedRevealer
	outbox    *outbox
	accountID string
}

func newFixture(t *testing.T, pushTimeout time.Duration) fixture {
	t.Helper()
	return newFixtureWith(t, pushTimeout, stores{})
}

// stores lets a test wrap the account store behind a single collaborator.
type stores struct {
	credentials func(*account.MemoryStore) account.CredentialStore
	pins        func(*account.MemoryStore) account.PinStore
}

func newFixtureWith(t *testing.T, pushTimeout time.Duration, wrap stores) fixture {
	t.Helper()

	h, err := hasher.New(hasher.FastParams())
	require.NoError(t, err)

	accounts := account.NewMemoryStore(h)
	acc, err := accounts.Create(context.Background(), testEmail, testPassword, account.Profile{
		DisplayName: "Alice",
		Theme:       "dark",
	})
	require.NoError(t, err)

	out := &outbox{}
	codes, err := verification.New(verification.NewMemoryStore(), out,
		verification.WithCodeGenerator(func(int) (string, error) { return testCode, nil }),
	)
	require.NoError(t, err)

	notify := &hookNotifier{}
	push := pushauth.New(notify,
		pushauth.WithConfig(pushauth.Config{Timeout: pushTimeout, Retention: time.Minute}),
	)
	t.Cleanup(func() { _ = push.Close() })

	var pinStore account.PinStore = accounts
	if wrap.pins != nil {
		pinStore = wrap.pins(accounts)
	}
	pins, err := vaultpin.New(pinStore, h)
	require.NoError(t, err)

	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	sealer, err := authenticator.NewSealedRevealer(key)
	require.NoError(t, err)

	var credentials account.CredentialStore = accounts
	if wrap.credentials != nil {
		credentials = wrap.credentials(accounts)
	}

	devices := devicetrust.New(accounts)
	orch, err := login.New(login.Deps{
		Directory:     accounts,
		Credentials:   credentials,
		Devices:       devices,
		Codes:         codes,
		Push:          push,
		Sessions:      session.NewManager[account.SessionData](session.NewMemoryStore[account.SessionData]()),
		Pins:          pins,
		Authenticator: authenticator.NewService(sealer),
	}, login.WithConfig(login.Config{PasswordMaxAttempts: 3, PasswordWindow: time.Hour}))
	require.NoError(t, err)

	return fixture{
		orch:      orch,
		accounts:  accounts,
		devices:   devices,
		push:      push,
		notify:    notify,
		sealer:    sealer,
		outbox:    out,
		accountID: acc.ID,
	}
}

// signIn runs the full password and code path and returns the session token.
func (fx fixture) signIn(t *testing.T, deviceID string) string {
	t.Helper()
	ctx := context.Background()

	f := fx.orch.Start(deviceID)
	require.NoError(t, fx.orch.SubmitEmail(ctx, f, testEmail))
	require.NoError(t, fx.orch.BeginPasswordLogin(ctx, f, testPassword))
	require.NoError(t, fx.orch.CheckDeviceTrust(ctx, f))
	if f.State() == login.StateAwaitingCode {
		require.NoError(t, fx.orch.VerifyLoginCode(ctx, f, testCode))
	}
	require.Equal(t, login.StateAuthenticated, f.State())
	return f.Snapshot().SessionToken
}

type awaitOutcome struct {
	req pushauth.Request
	err error
}

// awaitPush runs AwaitPushLogin in the background and gives it time to block on the
// current request before the test moves the flow on.
func (fx fixture) awaitPush(t *testing.T, f *login.Flow) <-chan awaitOutcome {
	t.Helper()
	done := make(chan awaitOutcome, 1)
	go func() {
		req, err := fx.orch.AwaitPushLogin(context.Background(), f)
		done <- awaitOutcome{req, err}
	}()
	time.Sleep(20 * time.Millisecond)
	return done
}

func TestNew_RequiresDeps(t *testing.T) {
	t.Parallel()

	_, err := login.New(login.Deps{})
	require.ErrorIs(t, err, login.ErrInvalidConfig)
}

func TestOrchestrator_CheckAccountExists(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()

	ok, err := fx.orch.CheckAccountExists(ctx, " A@X.com ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fx.orch.CheckAccountExists(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = fx.orch.CheckAccountExists(ctx, "not-an-email")
	require.ErrorIs(t, err, account.ErrInvalidEmail)
}

func TestOrchestrator_SubmitEmail(t *testing.T) {
	t.Parallel()

	t.Run("known email preloads hints", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, time.Minute)
		f := fx.orch.Start("D1")

		require.NoError(t, fx.orch.SubmitEmail(context.Background(), f, testEmail))

		snap := f.Snapshot()
		assert.Equal(t, login.StateCollectingPassword, snap.State)
		assert.Equal(t, "Alice", snap.Hints.DisplayName)
		assert.Equal(t, "dark", snap.Hints.Theme)
		assert.False(t, snap.RegistrationRequired)
	})

	t.Run("unknown email routes to registration", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, time.Minute)
		f := fx.orch.Start("D1")

		require.NoError(t, fx.orch.SubmitEmail(context.Background(), f, "new@x.com"))

		snap := f.Snapshot()
		assert.Equal(t, login.StateCollectingEmail, snap.State)
		assert.True(t, snap.RegistrationRequired)
		assert.Equal(t, "new@x.com", snap.Email)
	})

	t.Run("wrong step", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, time.Minute)
		f := fx.orch.Start("D1")
		require.NoError(t, fx.orch.SubmitEmail(context.Background(), f, testEmail))

		err := fx.orch.SubmitEmail(context.Background(), f, testEmail)
		require.ErrorIs(t, err, autherr.ErrInvalidState)
	})
}

func TestOrchestrator_PasswordFailureIsGeneric(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	f := fx.orch.Start("D1")
	require.NoError(t, fx.orch.SubmitEmail(ctx, f, testEmail))

	err := fx.orch.BeginPasswordLogin(ctx, f, "wrong")
	require.ErrorIs(t, err, autherr.ErrInvalidCredential)
	assert.Equal(t, "invalid email or password", err.Error())
	assert.Equal(t, login.StateCollectingPassword, f.State())

	require.NoError(t, fx.orch.BeginPasswordLogin(ctx, f, testPassword))
	assert.Equal(t, login.StateCheckingDeviceTrust, f.State())
}

func TestOrchestrator_PasswordAttemptLimit(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	f := fx.orch.Start("D1")
	require.NoError(t, fx.orch.SubmitEmail(ctx, f, testEmail))

	for range 2 {
		require.ErrorIs(t, fx.orch.BeginPasswordLogin(ctx, f, "wrong"), autherr.ErrInvalidCredential)
	}
	err := fx.orch.BeginPasswordLogin(ctx, f, "wrong")
	require.ErrorIs(t, err, autherr.ErrTooManyAttempts)

	// The budget is spent, so even the right password is refused.
	err = fx.orch.BeginPasswordLogin(ctx, f, testPassword)
	require.ErrorIs(t, err, autherr.ErrTooManyAttempts)
	wait, ok := autherr.RetryAfter(err)
	require.True(t, ok)
	assert.Positive(t, wait)
	assert.Equal(t, login.StateCollectingPassword, f.State())
}

// gatedCredentials parks every password check until release is closed.
type gatedCredentials struct {
	*account.MemoryStore
	arrived atomic.Int32
	release chan struct{}
}

func (g *gatedCredentials) VerifyPassword(ctx context.Context, email, password string) (account.CredentialSession, error) {
	g.arrived.Add(1)
	<-g.release
	return g.MemoryStore.VerifyPassword(ctx, email, password)
}

func TestOrchestrator_ConcurrentPasswordGuessesShareBudget(t *testing.T) {
	t.Parallel()

	const (
		budget  = 3
		guesses = 30
	)

	gate := &gatedCredentials{release: make(chan struct{})}
	fx := newFixtureWith(t, time.Minute, stores{credentials: func(s *account.MemoryStore) account.CredentialStore {
		gate.MemoryStore = s
		return gate
	}})
	ctx := context.Background()

	flows := make([]*login.Flow, guesses)
	for i := range flows {
		flows[i] = fx.orch.Start("D1")
		require.NoError(t, fx.orch.SubmitEmail(ctx, flows[i], testEmail))
	}

	var rejected, limited, finished atomic.Int32
	var wg sync.WaitGroup
	for _, f := range flows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer finished.Add(1)
			err := fx.orch.BeginPasswordLogin(ctx, f, "wrong")
			switch {
			case errors.Is(err, autherr.ErrTooManyAttempts):
				limited.Add(1)
			case errors.Is(err, autherr.ErrInvalidCredential):
				rejected.Add(1)
			default:
				t.Errorf("unexpected result: %v", err)
			}
		}()
	}

	require.Eventually(t, func() bool {
		return gate.arrived.Load()+finished.Load() == guesses
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, int32(budget), gate.arrived.Load(), "only budgeted guesses reach the credential store")
	close(gate.release)
	wg.Wait()

	assert.Equal(t, int32(budget-1), rejected.Load())
	assert.Equal(t, int32(guesses-budget+1), limited.Load())
}

func TestOrchestrator_UntrustedDeviceBecomesTrusted(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	f := fx.orch.Start("D1")

	require.NoError(t, fx.orch.SubmitEmail(ctx, f, testEmail))
	assert.False(t, fx.orch.IsDeviceTrusted(ctx, f), "untrusted before password")

	require.NoError(t, fx.orch.BeginPasswordLogin(ctx, f, testPassword))
	assert.False(t, fx.orch.IsDeviceTrusted(ctx, f))

	require.NoError(t, fx.orch.IssueLoginCode(ctx, f))
	assert.Equal(t, login.StateAwaitingCode, f.State())
	assert.Equal(t, 1, fx.outbox.sent())

	err := fx.orch.VerifyLoginCode(ctx, f, "654321")
	require.ErrorIs(t, err, autherr.ErrInvalidCredential)
	assert.Equal(t, login.StateAwaitingCode, f.State())

	require.NoError(t, fx.orch.VerifyLoginCode(ctx, f, testCode))
	assert.Equal(t, login.StateAuthenticated, f.State())
	assert.True(t, fx.devices.IsTrusted(ctx, fx.accountID, "D1"))

	sess, ok := f.Session()
	require.True(t, ok)
	assert.Equal(t, fx.accountID, sess.AccountID)
	assert.Equal(t, "D1", sess.DeviceID)
	assert.Equal(t, login.MethodCode, sess.Data.Method)
	assert.NotEmpty(t, sess.Data.CredentialToken)
}

func TestOrchestrator_TrustedDeviceSkipsCode(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, fx.devices.Register(ctx, fx.accountID, "D1"))

	f := fx.orch.Start("D1")
	require.NoError(t, fx.orch.SubmitEmail(ctx, f, testEmail))
	require.NoError(t, fx.orch.BeginPasswordLogin(ctx, f, testPassword))
	assert.True(t, fx.orch.IsDeviceTrusted(ctx, f))

	require.NoError(t, fx.orch.CheckDeviceTrust(ctx, f))
	assert.Equal(t, login.StateAuthenticated, f.State())
	assert.Zero(t, fx.outbox.sent())

	sess, ok := f.Session()
	require.True(t, ok)
	assert.Equal(t, login.MethodTrustedDevice, sess.Data.Method)
}

func TestOrchestrator_CodeDispatchFailureKeepsStep(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	fx.outbox.fail = errors.New("smtp down")

	f := fx.orch.Start("D1")
	require.NoError(t, fx.orch.SubmitEmail(ctx, f, testEmail))
	require.NoError(t, fx.orch.BeginPasswordLogin(ctx, f, testPassword))

	err := fx.orch.CheckDeviceTrust(ctx, f)
	require.ErrorIs(t, err, autherr.ErrUnavailable)
	assert.Equal(t, login.StateCheckingDeviceTrust, f.State())

	fx.outbox.mu.Lock()
	fx.outbox.fail = nil
	fx.outbox.mu.Unlock()

	require.NoError(t, fx.orch.CheckDeviceTrust(ctx, f))
	assert.Equal(t, login.StateAwaitingCode, f.State())
}

func TestOrchestrator_PushApproved(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	approver := fx.signIn(t, "phone")

	f := fx.orch.Start("laptop")
	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, testEmail))
	require.Equal(t, login.StateAwaitingPush, f.State())
	id := f.Snapshot().PushRequestID
	require.NotEmpty(t, id)

	done := make(chan error, 1)
	go func() {
		_, err := fx.orch.AwaitPushLogin(ctx, f)
		done <- err
	}()

	require.NoError(t, fx.orch.ApprovePushLogin(ctx, approver, id))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("await did not return")
	}

	assert.Equal(t, login.StateAuthenticated, f.State())
	sess, ok := f.Session()
	require.True(t, ok)
	assert.Equal(t, login.MethodPush, sess.Data.Method)
	assert.Empty(t, sess.Data.CredentialToken)
	assert.False(t, fx.devices.IsTrusted(ctx, fx.accountID, "laptop"), "push login does not trust the device")
}

func TestOrchestrator_PushDeniedFails(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	approver := fx.signIn(t, "phone")

	f := fx.orch.Start("laptop")
	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, testEmail))
	require.NoError(t, fx.orch.DenyPushLogin(ctx, approver, f.Snapshot().PushRequestID))

	req, err := fx.orch.AwaitPushLogin(ctx, f)
	require.ErrorIs(t, err, pushauth.ErrDenied)
	assert.Equal(t, pushauth.StatusDenied, req.Status)

	snap := f.Snapshot()
	assert.Equal(t, login.StateFailed, snap.State)
	require.ErrorIs(t, snap.Reason, pushauth.ErrDenied)

	fx.orch.Restart(ctx, f)
	snap = f.Snapshot()
	assert.Equal(t, login.StateCollectingEmail, snap.State)
	assert.NoError(t, snap.Reason)
}

func TestOrchestrator_PushExpires(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, 20*time.Millisecond)
	ctx := context.Background()

	f := fx.orch.Start("laptop")
	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, testEmail))

	req, err := fx.orch.AwaitPushLogin(ctx, f)
	require.ErrorIs(t, err, autherr.ErrExpired)
	assert.Equal(t, pushauth.StatusExpired, req.Status)
	assert.Equal(t, login.StateFailed, f.State())
}

func TestOrchestrator_CancelPushBeforeApproval(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	approver := fx.signIn(t, "phone")

	f := fx.orch.Start("laptop")
	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, testEmail))
	id := f.Snapshot().PushRequestID

	done := fx.awaitPush(t, f)

	require.NoError(t, fx.orch.CancelPushLogin(ctx, f))
	assert.Equal(t, login.StateCollectingEmail, f.State())

	select {
	case out := <-done:
		require.ErrorIs(t, out.err, autherr.ErrCancelled)
		assert.NotEqual(t, pushauth.StatusApproved, out.req.Status)
	case <-time.After(time.Second):
		t.Fatal("await did not return")
	}

	// A late approval cannot revive the abandoned request.
	err := fx.orch.ApprovePushLogin(ctx, approver, id)
	require.ErrorIs(t, err, autherr.ErrInvalidState)
	assert.Equal(t, login.StateCollectingEmail, f.State())
	_, ok := f.Session()
	assert.False(t, ok)
}

func TestOrchestrator_SecondPushRequestSupersedesFirst(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()

	first := fx.orch.Start("laptop")
	second := fx.orch.Start("tablet")
	require.NoError(t, fx.orch.RequestPushLogin(ctx, first, testEmail))

	done := make(chan error, 1)
	go func() {
		_, err := fx.orch.AwaitPushLogin(ctx, first)
		done <- err
	}()

	require.NoError(t, fx.orch.RequestPushLogin(ctx, second, testEmail))

	select {
	case err := <-done:
		require.ErrorIs(t, err, autherr.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("first await hung after being superseded")
	}
	assert.Equal(t, login.StateCollectingEmail, first.State())
	assert.Equal(t, login.StateAwaitingPush, second.State())
}

func TestOrchestrator_RepeatedPushRequestInSameFlow(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()

	f := fx.orch.Start("laptop")
	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, testEmail))
	firstID := f.Snapshot().PushRequestID

	done := fx.awaitPush(t, f)

	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, ""))

	select {
	case out := <-done:
		require.ErrorIs(t, out.err, autherr.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("stale await did not return")
	}
	snap := f.Snapshot()
	assert.Equal(t, login.StateAwaitingPush, snap.State)
	assert.NotEqual(t, firstID, snap.PushRequestID)
}

func TestOrchestrator_PushRequestForAnotherEmailWithdrawsFirst(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	_, err := fx.accounts.Create(ctx, "b@x.com", testPassword, account.Profile{})
	require.NoError(t, err)

	f := fx.orch.Start("laptop")
	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, testEmail))
	firstID := f.Snapshot().PushRequestID

	done := fx.awaitPush(t, f)

	// Try to approve the first request while the second one is being announced.
	var lateApproval error
	fx.notify.set(func(ev pushauth.Event) {
		if ev.Kind == pushauth.EventRequested && ev.Request.ID != firstID {
			lateApproval = fx.push.Approve(ctx, firstID, "phone")
		}
	})
	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, "b@x.com"))
	fx.notify.set(nil)

	select {
	case out := <-done:
		require.ErrorIs(t, out.err, autherr.ErrCancelled)
		assert.NotEqual(t, pushauth.StatusApproved, out.req.Status)
	case <-time.After(time.Second):
		t.Fatal("await of the withdrawn request did not return")
	}

	first, err := fx.push.Get(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, pushauth.StatusCancelled, first.Status)
	assert.ErrorIs(t, lateApproval, pushauth.ErrAlreadyResolved, "the withdrawn request must not accept approval")

	snap := f.Snapshot()
	assert.Equal(t, login.StateAwaitingPush, snap.State)
	assert.Equal(t, "b@x.com", snap.Email)
	assert.NoError(t, snap.Reason)
}

func TestOrchestrator_AwaitHonoursContext(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)

	f := fx.orch.Start("laptop")
	require.NoError(t, fx.orch.RequestPushLogin(context.Background(), f, testEmail))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := fx.orch.AwaitPushLogin(ctx, f)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, login.StateAwaitingPush, f.State())
}

func TestOrchestrator_PushForUnknownEmail(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)

	f := fx.orch.Start("laptop")
	err := fx.orch.RequestPushLogin(context.Background(), f, "ghost@x.com")
	require.ErrorIs(t, err, autherr.ErrInvalidCredential)
	assert.Equal(t, login.StateCollectingEmail, f.State())
}

func TestOrchestrator_ApproveRequiresSameAccount(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()

	_, err := fx.accounts.Create(ctx, "b@x.com", "battery-staple", account.Profile{})
	require.NoError(t, err)

	f := fx.orch.Start("laptop")
	require.NoError(t, fx.orch.RequestPushLogin(ctx, f, testEmail))
	id := f.Snapshot().PushRequestID

	other := fx.orch.Start("phone")
	require.NoError(t, fx.orch.SubmitEmail(ctx, other, "b@x.com"))
	require.NoError(t, fx.orch.BeginPasswordLogin(ctx, other, "battery-staple"))
	require.NoError(t, fx.orch.CheckDeviceTrust(ctx, other))
	require.NoError(t, fx.orch.VerifyLoginCode(ctx, other, testCode))

	err = fx.orch.ApprovePushLogin(ctx, other.Snapshot().SessionToken, id)
	require.ErrorIs(t, err, login.ErrForeignRequest)

	err = fx.orch.ApprovePushLogin(ctx, "bogus", id)
	require.ErrorIs(t, err, login.ErrNotAuthenticated)
}

func TestOrchestrator_LogoutAndChangePassword(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	token := fx.signIn(t, "D1")

	err := fx.orch.ChangePassword(ctx, token, "wrong", "new-password-1")
	require.ErrorIs(t, err, autherr.ErrInvalidCredential)

	err = fx.orch.ChangePassword(ctx, token, testPassword, "short")
	require.ErrorIs(t, err, account.ErrWeakPassword)

	require.NoError(t, fx.orch.ChangePassword(ctx, token, testPassword, "new-password-1"))

	_, err = fx.accounts.VerifyPassword(ctx, testEmail, testPassword)
	require.ErrorIs(t, err, autherr.ErrInvalidCredential)
	_, err = fx.accounts.VerifyPassword(ctx, testEmail, "new-password-1")
	require.NoError(t, err)

	require.NoError(t, fx.orch.Logout(ctx, token))
	_, err = fx.orch.Session(ctx, token)
	require.ErrorIs(t, err, login.ErrNotAuthenticated)
	require.NoError(t, fx.orch.Logout(ctx, token), "logout is idempotent")
}

func TestOrchestrator_VaultPin(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	token := fx.signIn(t, "D1")

	unlocked, err := fx.orch.IsVaultUnlocked(ctx, token)
	require.NoError(t, err)
	assert.True(t, unlocked, "no pin means unlocked")

	require.NoError(t, fx.orch.SetVaultPin(ctx, token, "1234"))
	unlocked, err = fx.orch.IsVaultUnlocked(ctx, token)
	require.NoError(t, err)
	assert.True(t, unlocked, "setting the pin unlocks the calling session")

	require.NoError(t, fx.orch.LockVault(ctx, token))
	unlocked, err = fx.orch.IsVaultUnlocked(ctx, token)
	require.NoError(t, err)
	assert.False(t, unlocked)

	require.ErrorIs(t, fx.orch.SetVaultPin(ctx, token, "9999"), autherr.ErrNotPermitted)
	require.ErrorIs(t, fx.orch.VerifyVaultPin(ctx, token, "0000"), autherr.ErrInvalidCredential)
	require.NoError(t, fx.orch.VerifyVaultPin(ctx, token, "1234"))

	unlocked, err = fx.orch.IsVaultUnlocked(ctx, token)
	require.NoError(t, err)
	assert.True(t, unlocked)

	// A new session must be challenged again.
	second := fx.signIn(t, "D1")
	unlocked, err = fx.orch.IsVaultUnlocked(ctx, second)
	require.NoError(t, err)
	assert.False(t, unlocked)

	require.ErrorIs(t, fx.orch.DisableVaultPin(ctx, second, "0000"), autherr.ErrInvalidCredential)
	require.NoError(t, fx.orch.DisableVaultPin(ctx, second, "1234"))
	unlocked, err = fx.orch.IsVaultUnlocked(ctx, second)
	require.NoError(t, err)
	assert.True(t, unlocked)
}

func TestOrchestrator_CurrentTotp(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	token := fx.signIn(t, "D1")

	ref, err := fx.sealer.Seal(ctx, fx.accountID, "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ")
	require.NoError(t, err)
	entry := authenticator.Entry{AccountID: fx.accountID, ServiceName: "Example", SecretRef: ref}

	code, err := fx.orch.CurrentTotp(ctx, token, entry)
	require.NoError(t, err)
	assert.Len(t, code.Code, 6)
	assert.InDelta(t, 15, code.RemainingSeconds, 15)

	require.NoError(t, fx.orch.SetVaultPin(ctx, token, "1234"))
	require.NoError(t, fx.orch.LockVault(ctx, token))
	_, err = fx.orch.CurrentTotp(ctx, token, entry)
	require.ErrorIs(t, err, autherr.ErrNotPermitted)

	_, err = fx.orch.CurrentTotp(ctx, "bogus", entry)
	require.ErrorIs(t, err, login.ErrNotAuthenticated)
}

func TestOrchestrator_DeviceManagement(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()
	token := fx.signIn(t, "D1")
	fx.signIn(t, "D2")

	devices, err := fx.orch.TrustedDevices(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1", "D2"}, devices)

	require.NoError(t, fx.orch.RevokeDevice(ctx, token, "D1"))
	devices, err = fx.orch.TrustedDevices(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"D2"}, devices)
}

func TestOrchestrator_RestartEndsCredentialSession(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, time.Minute)
	ctx := context.Background()

	f := fx.orch.Start("D1")
	require.NoError(t, fx.orch.SubmitEmail(ctx, f, testEmail))
	require.NoError(t, fx.orch.BeginPasswordLogin(ctx, f, testPassword))

	fx.orch.Restart(ctx, f)
	assert.Equal(t, login.StateCollectingEmail, f.State())
	require.ErrorIs(t, fx.orch.CheckDeviceTrust(ctx, f), autherr.ErrInvalidState)
}

// hookedPins runs onGet before every PIN lookup.
type hookedPins struct {
	*account.MemoryStore
	onGet func()
}

func (p *hookedPins) GetPin(ctx context.Context, accountID string) (account.PinRecord, error) {
	if p.onGet != nil {
		p.onGet()
	}
	return p.MemoryStore.GetPin(ctx, accountID)
}

func TestOrchestrator_LogoutDuringPinUnlockStaysLoggedOut(t *testing.T) {
	t.Parallel()

	pins := &hookedPins{}
	fx := newFixtureWith(t, time.Minute, stores{pins: func(s *account.MemoryStore) account.PinStore {
		pins.MemoryStore = s
		return pins
	}})
	ctx := context.Background()
	token := fx.signIn(t, "laptop")
	require.NoError(t, fx.orch.SetVaultPin(ctx, token, "4321"))
	require.NoError(t, fx.orch.LockVault(ctx, token))

	// The session is read before the PIN is checked, so this logout lands in between.
	pins.onGet = func() {
		pins.onGet = nil
		require.NoError(t, fx.orch.Logout(ctx, token))
	}

	err := fx.orch.VerifyVaultPin(ctx, token, "4321")
	require.ErrorIs(t, err, login.ErrNotAuthenticated)

	_, err = fx.orch.Session(ctx, token)
	assert.ErrorIs(t, err, login.ErrNotAuthenticated)
}
