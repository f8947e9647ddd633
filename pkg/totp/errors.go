package totp

import "errors"

var (
	ErrInvalidSecret    = errors.New("invalid TOTP secret")
	ErrInvalidPeriod    = errors.New("period must be positive")
	ErrInvalidDigits    = errors.New("digits must be between 6 and 8")
	ErrInvalidAlgorithm = errors.New("unsupported hash algorithm")
	ErrInvalidTime      = errors.New("time must not be before unix epoch")
	ErrInvalidLength    = errors.New("code length must be positive")
	ErrMissingAccount   = errors.New("account name is required")
	ErrMissingIssuer    = errors.New("issuer is required")
)
