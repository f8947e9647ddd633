package authenticator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/pkg/secrets"
	"github.com/dmitrymomot/lifevault/pkg/totp"
)

// sealedRefPrefix versions the reference format.
const sealedRefPrefix = "sv1."

// SealedRevealer seals secrets into self-contained references. A reference is the AES-GCM
// ciphertext of the secret under a key derived from the application key and the owning
// account, so it opens only for that account and survives restarts as long as the
// application key does.
type SealedRevealer struct {
	appKey []byte
}

// NewSealedRevealer creates a revealer using appKey (32 bytes) as the application key.
func NewSealedRevealer(appKey []byte) (*SealedRevealer, error) {
	if len(appKey) != secrets.KeySize {
		return nil, secrets.ErrInvalidAppKey
	}
	return &SealedRevealer{appKey: appKey}, nil
}

// Seal encrypts a base32 secret for accountID and returns the reference to store on the entry.
func (r *SealedRevealer) Seal(ctx context.Context, accountID, base32Secret string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if accountID == "" {
		return "", ErrInvalidEntry
	}
	raw, err := totp.DecodeSecret(base32Secret)
	if err != nil {
		return "", err
	}
	defer clear(raw)

	sealed, err := secrets.EncryptBytes(r.appKey, secrets.ScopeKey(accountID), raw)
	if err != nil {
		return "", fmt.Errorf("seal secret: %w", err)
	}
	return sealedRefPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Reveal opens ref for scope.AccountID. A reference sealed for another account does not
// open and is reported as autherr.ErrNotPermitted.
func (r *SealedRevealer) Reveal(ctx context.Context, ref string, scope AccessScope) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !scope.Reveal || scope.AccountID == "" {
		return nil, autherr.ErrNotPermitted
	}

	encoded, ok := strings.CutPrefix(ref, sealedRefPrefix)
	if !ok {
		return nil, ErrSecretNotFound
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrSecretNotFound
	}

	raw, err := secrets.DecryptBytes(r.appKey, secrets.ScopeKey(scope.AccountID), sealed)
	switch {
	case err == nil:
		return raw, nil
	case errors.Is(err, secrets.ErrCiphertextTooShort):
		return nil, ErrSecretNotFound
	case errors.Is(err, secrets.ErrDecryptionFailed):
		return nil, autherr.ErrNotPermitted
	default:
		return nil, fmt.Errorf("open secret: %w", err)
	}
}
