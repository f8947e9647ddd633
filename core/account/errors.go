package account

import "errors"

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrEmailTaken is returned when creating an account for an email that is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidEmail is returned for an empty or malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword is returned when a new password does not meet the minimum length.
	ErrWeakPassword = errors.New("password is too short")
	// ErrPinNotSet is returned when the account has no vault PIN record.
	ErrPinNotSet = errors.New("vault pin not set")
)
