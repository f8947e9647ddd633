package verification

import "errors"

var (
	ErrInvalidPurpose = errors.New("unknown verification purpose")
	ErrInvalidEmail   = errors.New("email is required")
	ErrNotFound       = errors.New("verification code not found")
)
