package account

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// MinPasswordLength is the minimum accepted length for a new password.
const MinPasswordLength = 8

// Account is an authenticatable user of the vault.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile holds the cosmetic and preference metadata stored alongside the account.
// Trusted devices and the PIN record live in the same metadata document but are only reachable
// through their dedicated stores.
type Profile struct {
	DisplayName   string          `json:"display_name,omitempty"`
	AvatarRef     string          `json:"avatar_ref,omitempty"`
	Theme         string          `json:"theme,omitempty"`
	Notifications map[string]bool `json:"notification_settings,omitempty"`
}

// Hints are the non-authoritative profile values preloaded once an email is recognised.
type Hints struct {
	DisplayName string
	Theme       string
	AvatarRef   string
}

// Hints returns the cosmetic hints derived from the profile.
func (p Profile) Hints() Hints {
	return Hints{DisplayName: p.DisplayName, Theme: p.Theme, AvatarRef: p.AvatarRef}
}

// CredentialSession is the credential store's own session, returned on a successful password check.
type CredentialSession struct {
	AccountID string
	Email     string
	Token     string
	IssuedAt  time.Time
}

// PinRecord is the stored vault PIN state. Hash is an encoded one-way hash, never the raw PIN.
type PinRecord struct {
	Hash    string `json:"pin_hash,omitempty"`
	Enabled bool   `json:"pin_enabled"`
}

// SessionData is the application data carried by the explicit session token.
type SessionData struct {
	Email           string    `json:"email"`
	Method          string    `json:"method"`
	CredentialToken string    `json:"credential_token,omitempty"`
	VaultUnlockedAt time.Time `json:"vault_unlocked_at,omitzero"`
}

// Directory finds accounts by email.
type Directory interface {
	// LookupAccount returns ErrNotFound when no account uses the email.
	LookupAccount(ctx context.Context, email string) (Account, error)
}

// CredentialStore owns password storage and credential-level sessions.
type CredentialStore interface {
	// VerifyPassword returns autherr.ErrInvalidCredential for an unknown email or a wrong password.
	VerifyPassword(ctx context.Context, email, password string) (CredentialSession, error)
	UpdatePassword(ctx context.Context, sess CredentialSession, newPassword string) error
	EndSession(ctx context.Context, sess CredentialSession) error
}

// ProfileStore reads and writes profile metadata.
type ProfileStore interface {
	GetProfile(ctx context.Context, accountID string) (Profile, error)
	UpdateProfile(ctx context.Context, accountID string, fn func(*Profile)) error
}

// TrustedDeviceStore persists the trusted device list of an account.
type TrustedDeviceStore interface {
	TrustedDevices(ctx context.Context, accountID string) ([]string, error)
	// UpdateTrustedDevices applies fn to the current list and stores the result atomically,
	// so concurrent updates for one account never lose a write.
	UpdateTrustedDevices(ctx context.Context, accountID string, fn func([]string) []string) error
}

// PinStore persists the vault PIN record of an account.
type PinStore interface {
	// GetPin returns ErrPinNotSet when the account never set a PIN.
	GetPin(ctx context.Context, accountID string) (PinRecord, error)
	SavePin(ctx context.Context, accountID string, rec PinRecord) error
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports ErrInvalidEmail for addresses that do not parse as a bare address.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
