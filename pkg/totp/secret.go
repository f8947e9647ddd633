package totp

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
)

// secretSize matches the HMAC-SHA1 block recommendation of RFC 4226 (160 bits).
const secretSize = 20

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecretKey returns a random 160-bit secret encoded as unpadded base32.
func GenerateSecretKey() (string, error) {
	buf := make([]byte, secretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return b32.EncodeToString(buf), nil
}

// DecodeSecret decodes a base32 secret as typed by users or exported by other apps:
// lower case, spaces, dashes and trailing padding are accepted.
func DecodeSecret(secret string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, secret)
	cleaned = strings.TrimRight(strings.ToUpper(cleaned), "=")
	if cleaned == "" {
		return nil, ErrInvalidSecret
	}

	key, err := b32.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return key, nil
}

// TOTPParams holds the data encoded into an otpauth:// URI.
type TOTPParams struct {
	Secret      string
	AccountName string
	Issuer      string
	Params      Params
}

// GetTOTPURI builds a Key URI Format string understood by authenticator apps.
func GetTOTPURI(p TOTPParams) (string, error) {
	if p.AccountName == "" {
		return "", ErrMissingAccount
	}
	if p.Issuer == "" {
		return "", ErrMissingIssuer
	}
	if _, err := DecodeSecret(p.Secret); err != nil {
		return "", err
	}
	params := p.Params.WithDefaults()
	if err := params.Validate(); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("secret", strings.TrimRight(strings.ToUpper(p.Secret), "="))
	q.Set("issuer", p.Issuer)
	q.Set("algorithm", string(params.Algorithm))
	q.Set("digits", strconv.Itoa(params.Digits))
	q.Set("period", strconv.Itoa(params.Period))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + p.Issuer + ":" + p.AccountName,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

var ten = big.NewInt(10)

// GenerateNumericCode returns a uniformly random decimal string of the given length.
// Each digit is drawn independently from crypto/rand, so leading zeros are as likely as any digit.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	var sb strings.Builder
	sb.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}
