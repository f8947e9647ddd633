package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/authenticator"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/core/session"
)

// Session resolves a session token. Unknown and expired tokens wrap ErrNotAuthenticated;
// expired ones also match autherr.ErrExpired.
func (o *Orchestrator) Session(ctx context.Context, token string) (Session, error) {
	sess, err := o.deps.Sessions.GetByToken(ctx, token)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, session.ErrNotFound):
		return Session{}, ErrNotAuthenticated
	case errors.Is(err, session.ErrExpired):
		return Session{}, fmt.Errorf("%w: %w", ErrNotAuthenticated, autherr.ErrExpired)
	default:
		return Session{}, autherr.Unavailable(err)
	}
}

// Logout ends the session and the credential-store session behind it. Unknown tokens are ignored.
func (o *Orchestrator) Logout(ctx context.Context, token string) error {
	sess, err := o.Session(ctx, token)
	if errors.Is(err, ErrNotAuthenticated) {
		return nil
	}
	if err != nil {
		return err
	}

	if sess.Data.CredentialToken != "" {
		o.endCredential(ctx, account.CredentialSession{
			AccountID: sess.AccountID,
			Email:     sess.Data.Email,
			Token:     sess.Data.CredentialToken,
		})
	}
	if err := o.deps.Sessions.Revoke(ctx, token); err != nil {
		return autherr.Unavailable(err)
	}

	o.logger.InfoContext(ctx, "logged out", logger.AccountID(sess.AccountID), logger.DeviceID(sess.DeviceID))
	return nil
}

// ChangePassword re-verifies current through the credential store before storing next.
// Wrong passwords count against the same budget as sign-in attempts.
func (o *Orchestrator) ChangePassword(ctx context.Context, token, current, next string) error {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return err
	}
	if len(next) < account.MinPasswordLength {
		return account.ErrWeakPassword
	}

	cred, err := o.verifyPassword(ctx, sess.Data.Email, current)
	if err != nil {
		return err
	}
	defer o.endCredential(context.WithoutCancel(ctx), cred)

	if err := o.deps.Credentials.UpdatePassword(ctx, cred, next); err != nil {
		if errors.Is(err, account.ErrWeakPassword) || errors.Is(err, autherr.ErrInvalidCredential) {
			return err
		}
		return autherr.Unavailable(err)
	}

	o.logger.InfoContext(ctx, "password changed", logger.AccountID(sess.AccountID))
	return nil
}

// SetVaultPin enables or replaces the vault PIN. Replacing an enabled PIN needs an unlocked
// session. The calling session is unlocked afterwards.
func (o *Orchestrator) SetVaultPin(ctx context.Context, token, pin string) error {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return err
	}
	unlocked, err := o.deps.Pins.IsUnlocked(ctx, sess)
	if err != nil {
		return err
	}
	if !unlocked {
		return autherr.ErrNotPermitted
	}

	if err := o.deps.Pins.SetPin(ctx, sess.AccountID, pin); err != nil {
		return err
	}

	data := sess.Data
	data.VaultUnlockedAt = time.Now()
	sess.SetData(data)
	return o.saveSession(ctx, sess)
}

// VerifyVaultPin checks pin and marks the session unlocked for the rest of its lifetime.
func (o *Orchestrator) VerifyVaultPin(ctx context.Context, token, pin string) error {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return err
	}
	sess, err = o.deps.Pins.Unlock(ctx, sess, pin)
	if err != nil {
		return err
	}
	return o.saveSession(ctx, sess)
}

// saveSession writes sess back. A session revoked since it was read stays revoked.
func (o *Orchestrator) saveSession(ctx context.Context, sess Session) error {
	err := o.deps.Sessions.Save(ctx, sess)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotFound):
		return ErrNotAuthenticated
	default:
		return autherr.Unavailable(err)
	}
}

// LockVault clears the session's unlock marker.
func (o *Orchestrator) LockVault(ctx context.Context, token string) error {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return err
	}
	return o.saveSession(ctx, o.deps.Pins.Lock(sess))
}

// DisableVaultPin turns the PIN off after re-verifying it.
func (o *Orchestrator) DisableVaultPin(ctx context.Context, token, pin string) error {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return err
	}
	return o.deps.Pins.Disable(ctx, sess.AccountID, pin)
}

// IsVaultUnlocked reports whether the session may open vault contents.
func (o *Orchestrator) IsVaultUnlocked(ctx context.Context, token string) (bool, error) {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return false, err
	}
	return o.deps.Pins.IsUnlocked(ctx, sess)
}

// CurrentTotp returns the live code of an authenticator entry. Secrets are revealed only to the
// owning account and only while its vault is unlocked; otherwise autherr.ErrNotPermitted.
func (o *Orchestrator) CurrentTotp(ctx context.Context, token string, entry authenticator.Entry) (authenticator.Code, error) {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return authenticator.Code{}, err
	}
	unlocked, err := o.deps.Pins.IsUnlocked(ctx, sess)
	if err != nil {
		return authenticator.Code{}, err
	}
	return o.deps.Authenticator.CurrentCode(ctx, entry, authenticator.AccessScope{
		AccountID: sess.AccountID,
		Reveal:    unlocked,
	})
}

// TrustedDevices lists the devices that skip the emailed code for the session's account.
func (o *Orchestrator) TrustedDevices(ctx context.Context, token string) ([]string, error) {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	return o.deps.Devices.Devices(ctx, sess.AccountID)
}

// RevokeDevice removes a device from the session account's trusted list.
func (o *Orchestrator) RevokeDevice(ctx context.Context, token, deviceID string) error {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return err
	}
	return o.deps.Devices.Revoke(ctx, sess.AccountID, deviceID)
}
