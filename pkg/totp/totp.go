package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"hash"
	"strings"
	"time"
)

// Algorithm names the HMAC hash used for code derivation.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "SHA1"
	AlgorithmSHA256 Algorithm = "SHA256"
	AlgorithmSHA512 Algorithm = "SHA512"
)

const (
	DefaultPeriod = 30
	DefaultDigits = 6
	DefaultSkew   = 1
)

// ParseAlgorithm accepts the algorithm names used in otpauth URIs, case-insensitively.
// An empty string maps to SHA1.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "", "SHA1":
		return AlgorithmSHA1, nil
	case "SHA256":
		return AlgorithmSHA256, nil
	case "SHA512":
		return AlgorithmSHA512, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAlgorithm, s)
	}
}

func (a Algorithm) hasher() (func() hash.Hash, error) {
	switch a {
	case AlgorithmSHA1, "":
		return sha1.New, nil
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, string(a))
	}
}

// Params describes how codes are derived for one secret.
type Params struct {
	Period    int
	Digits    int
	Algorithm Algorithm
}

// DefaultParams returns the parameters every authenticator app supports: SHA1, 6 digits, 30 seconds.
func DefaultParams() Params {
	return Params{
		Period:    DefaultPeriod,
		Digits:    DefaultDigits,
		Algorithm: AlgorithmSHA1,
	}
}

// WithDefaults fills zero fields with defaults.
func (p Params) WithDefaults() Params {
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Algorithm == "" {
		p.Algorithm = AlgorithmSHA1
	}
	return p
}

// Validate reports whether the parameters can produce codes.
func (p Params) Validate() error {
	if p.Period <= 0 {
		return ErrInvalidPeriod
	}
	if p.Digits < 6 || p.Digits > 8 {
		return ErrInvalidDigits
	}
	if _, err := p.Algorithm.hasher(); err != nil {
		return err
	}
	return nil
}

// Generate computes the code for secret at the given time:
// counter = floor(unix(at) / period), HMAC over the big-endian counter,
// dynamic truncation to a 31-bit integer, reduced modulo 10^digits and left-zero-padded.
func Generate(secret []byte, p Params, at time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrInvalidSecret
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	unix := at.Unix()
	if unix < 0 {
		return "", ErrInvalidTime
	}
	return hotp(secret, uint64(unix)/uint64(p.Period), p), nil
}

// hotp implements RFC 4226 for an already validated parameter set.
func hotp(secret []byte, counter uint64, p Params) string {
	newHash, _ := p.Algorithm.hasher()

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(newHash, secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for range p.Digits {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", p.Digits, bin%mod)
}

// Validate checks code against secret allowing skew steps of drift on either side.
// The comparison is constant-time per candidate.
func Validate(secret []byte, code string, p Params, at time.Time, skew int) bool {
	if len(code) != p.Digits || p.Validate() != nil || len(secret) == 0 {
		return false
	}
	unix := at.Unix()
	if unix < 0 {
		return false
	}
	counter := int64(uint64(unix) / uint64(p.Period))

	valid := false
	for i := -skew; i <= skew; i++ {
		c := counter + int64(i)
		if c < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotp(secret, uint64(c), p)), []byte(code)) == 1 {
			valid = true
		}
	}
	return valid
}

// RemainingSeconds returns period - (unix(at) mod period), always within [1, period].
// It drives UI countdowns; clients may always regenerate from the canonical formula.
func RemainingSeconds(period int, at time.Time) int {
	if period <= 0 {
		return 0
	}
	p := int64(period)
	rem := at.Unix() % p
	if rem < 0 {
		rem += p
	}
	return int(p - rem)
}

// GenerateTOTP returns the current code for a base32 secret using default parameters.
func GenerateTOTP(secret string) (string, error) {
	return GenerateTOTPWithTime(secret, time.Now())
}

// GenerateTOTPWithTime returns the code for a base32 secret at t using default parameters.
func GenerateTOTPWithTime(secret string, t time.Time) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	return Generate(key, DefaultParams(), t)
}

// ValidateTOTP validates code for a base32 secret at the current time with default parameters.
func ValidateTOTP(secret, code string) (bool, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return false, err
	}
	return Validate(key, code, DefaultParams(), time.Now(), DefaultSkew), nil
}
