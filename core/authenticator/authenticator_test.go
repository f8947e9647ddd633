package authenticator_test

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifevault/core/authenticator"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/pkg/secrets"
	"github.com/dmitrymomot/lifevault/pkg/totp"
)

// RFC 6238 test secret "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

type countingRevealer struct {
	inner authenticator.Revealer
	calls atomic.Int32
}

func (c *countingRevealer) Reveal(ctx context.Context, ref string, scope authenticator.AccessScope) ([]byte, error) {
	c.calls.Add(1)
	return c.inner.Reveal(ctx, ref, scope)
}

type brokenRevealer struct{}

func (brokenRevealer) Reveal(context.Context, string, authenticator.AccessScope) ([]byte, error) {
	return nil, errors.New("vault api timeout")
}

func newRevealer(t *testing.T) *authenticator.SealedRevealer {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	r, err := authenticator.NewSealedRevealer(key)
	require.NoError(t, err)
	return r
}

func TestService_CurrentCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sealed := newRevealer(t)
	ref, err := sealed.Seal(ctx, "acc-1", rfcSecret)
	require.NoError(t, err)

	revealer := &countingRevealer{inner: sealed}
	at := time.Unix(59, 0)
	svc := authenticator.NewService(revealer, authenticator.WithClock(func() time.Time { return at }))

	entry := authenticator.Entry{AccountID: "acc-1", ServiceName: "GitHub", AccountLabel: "alice", SecretRef: ref}
	scope := authenticator.AccessScope{AccountID: "acc-1", Reveal: true}

	code, err := svc.CurrentCode(ctx, entry, scope)
	require.NoError(t, err)
	assert.Equal(t, "287082", code.Code)
	assert.Equal(t, 1, code.RemainingSeconds)
	assert.Equal(t, 30, code.Period)
	assert.Equal(t, time.Unix(60, 0), code.ValidUntil)

	_, err = svc.CurrentCode(ctx, entry, scope)
	require.NoError(t, err)
	assert.Equal(t, int32(1), revealer.calls.Load(), "secret is cached after the first reveal")

	svc.Forget("acc-1", ref)
	_, err = svc.CurrentCode(ctx, entry, scope)
	require.NoError(t, err)
	assert.Equal(t, int32(2), revealer.calls.Load())
}

func TestService_MatchesIndependentImplementation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sealed := newRevealer(t)
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	ref, err := sealed.Seal(ctx, "acc", secret)
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 7, 0, time.UTC)
	svc := authenticator.NewService(sealed, authenticator.WithClock(func() time.Time { return at }))

	for _, tc := range []struct {
		alg    totp.Algorithm
		pqAlg  otp.Algorithm
		digits int
		period int
	}{
		{totp.AlgorithmSHA1, otp.AlgorithmSHA1, 6, 30},
		{totp.AlgorithmSHA256, otp.AlgorithmSHA256, 8, 60},
		{totp.AlgorithmSHA512, otp.AlgorithmSHA512, 6, 15},
	} {
		entry := authenticator.Entry{SecretRef: ref, Digits: tc.digits, Period: tc.period, Algorithm: tc.alg}
		got, err := svc.CurrentCode(ctx, entry, authenticator.AccessScope{AccountID: "acc", Reveal: true})
		require.NoError(t, err)

		want, err := pqtotp.GenerateCodeCustom(secret, at, pqtotp.ValidateOpts{
			Period:    uint(tc.period),
			Digits:    otp.Digits(tc.digits),
			Algorithm: tc.pqAlg,
		})
		require.NoError(t, err)
		assert.Equal(t, want, got.Code, tc.alg)
	}
}

func TestService_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sealed := newRevealer(t)
	ref, err := sealed.Seal(ctx, "owner", rfcSecret)
	require.NoError(t, err)
	svc := authenticator.NewService(sealed)
	entry := authenticator.Entry{SecretRef: ref}

	t.Run("scope without reveal", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CurrentCode(ctx, entry, authenticator.AccessScope{AccountID: "owner"})
		assert.ErrorIs(t, err, autherr.ErrNotPermitted)
	})

	t.Run("other account", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CurrentCode(ctx, entry, authenticator.AccessScope{AccountID: "intruder", Reveal: true})
		assert.ErrorIs(t, err, autherr.ErrNotPermitted)
	})

	t.Run("unknown ref", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CurrentCode(ctx, authenticator.Entry{SecretRef: "missing"}, authenticator.AccessScope{AccountID: "owner", Reveal: true})
		assert.ErrorIs(t, err, authenticator.ErrSecretNotFound)
	})

	t.Run("invalid entry", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CurrentCode(ctx, authenticator.Entry{SecretRef: ref, Digits: 4}, authenticator.AccessScope{AccountID: "owner", Reveal: true})
		assert.ErrorIs(t, err, authenticator.ErrInvalidEntry)
	})

	t.Run("secret service down", func(t *testing.T) {
		t.Parallel()
		broken := authenticator.NewService(brokenRevealer{})
		_, err := broken.CurrentCode(ctx, entry, authenticator.AccessScope{AccountID: "owner", Reveal: true})
		assert.ErrorIs(t, err, autherr.ErrUnavailable)
		assert.NotErrorIs(t, err, autherr.ErrNotPermitted)
	})
}

func TestSealedRevealer_ReferenceIsSelfContained(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	first, err := authenticator.NewSealedRevealer(key)
	require.NoError(t, err)
	ref, err := first.Seal(ctx, "owner", rfcSecret)
	require.NoError(t, err)

	t.Run("another revealer with the same key", func(t *testing.T) {
		t.Parallel()
		restarted, err := authenticator.NewSealedRevealer(slices.Clone(key))
		require.NoError(t, err)

		raw, err := restarted.Reveal(ctx, ref, authenticator.AccessScope{AccountID: "owner", Reveal: true})
		require.NoError(t, err)
		assert.Equal(t, []byte("12345678901234567890"), raw)
	})

	t.Run("a different key", func(t *testing.T) {
		t.Parallel()
		other := newRevealer(t)
		_, err := other.Reveal(ctx, ref, authenticator.AccessScope{AccountID: "owner", Reveal: true})
		assert.ErrorIs(t, err, autherr.ErrNotPermitted)
	})

	t.Run("tampered reference", func(t *testing.T) {
		t.Parallel()
		_, err := first.Reveal(ctx, ref[:len(ref)-4], authenticator.AccessScope{AccountID: "owner", Reveal: true})
		assert.Error(t, err)
		_, err = first.Reveal(ctx, "sv1.!!", authenticator.AccessScope{AccountID: "owner", Reveal: true})
		assert.ErrorIs(t, err, authenticator.ErrSecretNotFound)
	})
}

func TestEnroll(t *testing.T) {
	t.Parallel()

	enrollment, err := authenticator.Enroll("LifeVault", "a@x.com", totp.DefaultParams())
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.NotEmpty(t, enrollment.QRCode)

	key, err := otp.NewKeyFromURL(enrollment.URI)
	require.NoError(t, err)
	assert.Equal(t, "LifeVault", key.Issuer())
	assert.Equal(t, "a@x.com", key.AccountName())
	assert.Equal(t, enrollment.Secret, key.Secret())

	now := time.Now()
	raw, err := totp.DecodeSecret(enrollment.Secret)
	require.NoError(t, err)
	code, err := totp.Generate(raw, totp.DefaultParams(), now.Add(-30*time.Second))
	require.NoError(t, err)

	ok, err := authenticator.ConfirmEnrollment(enrollment.Secret, code, totp.Params{}, now)
	require.NoError(t, err)
	assert.True(t, ok, "one step of drift is accepted")

	_, err = authenticator.Enroll("", "a@x.com", totp.DefaultParams())
	assert.ErrorIs(t, err, totp.ErrMissingIssuer)
}
