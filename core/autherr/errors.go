// Package autherr defines the error taxonomy shared by every authentication component.
//
// Component packages wrap these sentinels, so callers branch with errors.Is regardless of which
// component produced the failure:
//
//	if errors.Is(err, autherr.ErrExpired) {
//		// offer "resend"
//	}
package autherr

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredential covers wrong passwords, PINs and codes. The message is deliberately
	// generic and never says which field was wrong.
	ErrInvalidCredential = errors.New("invalid email or password")
	// ErrExpired is returned when a code or push request aged out.
	ErrExpired = errors.New("expired")
	// ErrNotPermitted is returned when the caller lacks the scope to reveal a secret.
	ErrNotPermitted = errors.New("not permitted to reveal")
	// ErrUnavailable is returned when a collaborator (dispatcher, store, secret service) cannot be reached.
	ErrUnavailable = errors.New("service unavailable")
	// ErrTooManyAttempts is returned when an attempt budget is exhausted.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrCooldown is returned when an operation is repeated before its cooldown elapsed.
	ErrCooldown = errors.New("cooldown in effect")
	// ErrCancelled is returned when a pending operation was abandoned or superseded.
	ErrCancelled = errors.New("cancelled")
	// ErrInvalidState is returned when an operation is not allowed in the current flow step.
	ErrInvalidState = errors.New("operation not allowed in current state")
)

// RetryError carries the time a caller has to wait before retrying.
// It unwraps to the sentinel it was created with (ErrCooldown or ErrTooManyAttempts).
type RetryError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: retry after %s", e.Err, e.RetryAfter.Round(time.Second))
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Retry wraps err with a retry-after hint.
func Retry(err error, after time.Duration) error {
	if after < 0 {
		after = 0
	}
	return &RetryError{Err: err, RetryAfter: after}
}

// RetryAfter extracts the retry-after hint from err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var re *RetryError
	if errors.As(err, &re) {
		return re.RetryAfter, true
	}
	return 0, false
}

// Unavailable wraps a collaborator failure so it matches ErrUnavailable while keeping the cause.
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	return errors.Join(ErrUnavailable, cause)
}
