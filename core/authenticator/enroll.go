package authenticator

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/lifevault/pkg/qrcode"
	"github.com/dmitrymomot/lifevault/pkg/totp"
)

// Enrollment is the material shown to the user when adding an authenticator.
type Enrollment struct {
	Secret string // base32, unpadded
	URI    string // otpauth:// key URI
	QRCode []byte // PNG
}

// Enroll generates a fresh secret for accountLabel under issuer.
func Enroll(issuer, accountLabel string, params totp.Params) (Enrollment, error) {
	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate secret: %w", err)
	}
	return EnrollWithSecret(issuer, accountLabel, secret, params)
}

// EnrollWithSecret builds the enrollment material for an existing base32 secret.
func EnrollWithSecret(issuer, accountLabel, secret string, params totp.Params) (Enrollment, error) {
	uri, err := totp.GetTOTPURI(totp.TOTPParams{
		Secret:      secret,
		AccountName: accountLabel,
		Issuer:      issuer,
		Params:      params,
	})
	if err != nil {
		return Enrollment{}, err
	}

	png, err := qrcode.Generate(uri, qrcode.DefaultSize)
	if err != nil {
		return Enrollment{}, err
	}

	return Enrollment{Secret: secret, URI: uri, QRCode: png}, nil
}

// ConfirmEnrollment checks the first code the user typed from their app, allowing one step of
// clock drift in either direction.
func ConfirmEnrollment(secret, code string, params totp.Params, at time.Time) (bool, error) {
	key, err := totp.DecodeSecret(secret)
	if err != nil {
		return false, err
	}
	return totp.Validate(key, code, params.WithDefaults(), at, totp.DefaultSkew), nil
}
