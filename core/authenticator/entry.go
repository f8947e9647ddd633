package authenticator

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/lifevault/pkg/totp"
)

// Entry is a stored authenticator item.
type Entry struct {
	ID           string         `json:"id"`
	AccountID    string         `json:"account_id"`
	ServiceName  string         `json:"service_name"`
	AccountLabel string         `json:"account_label"`
	SecretRef    string         `json:"secret_ref"`
	Digits       int            `json:"digits"`
	Period       int            `json:"period"`
	Algorithm    totp.Algorithm `json:"algorithm"`
}

// Params returns the entry's TOTP parameters with defaults applied.
func (e Entry) Params() totp.Params {
	return totp.Params{Period: e.Period, Digits: e.Digits, Algorithm: e.Algorithm}.WithDefaults()
}

// Validate checks that the entry can produce codes.
func (e Entry) Validate() error {
	if e.SecretRef == "" {
		return fmt.Errorf("%w: missing secret reference", ErrInvalidEntry)
	}
	if err := e.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}

// AccessScope describes what the caller may do with secrets.
type AccessScope struct {
	AccountID string
	Reveal    bool
}

// Revealer supplies raw secrets on demand. It returns autherr.ErrNotPermitted when the scope
// does not allow the reveal.
type Revealer interface {
	Reveal(ctx context.Context, secretRef string, scope AccessScope) ([]byte, error)
}

// Code is a rendered one-time code with its countdown.
type Code struct {
	Code             string
	RemainingSeconds int
	Period           int
	ValidUntil       time.Time
}
