package login

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid login configuration")
	// ErrNotAuthenticated is returned when a session token is missing, unknown or expired.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForeignRequest is returned when a session tries to resolve another account's push request.
	ErrForeignRequest = errors.New("push request belongs to another account")
)
