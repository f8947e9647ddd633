package pushauth

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/lifevault/core/autherr"
)

var (
	ErrNotFound        = errors.New("push login request not found")
	ErrAlreadyResolved = fmt.Errorf("push login request already resolved: %w", autherr.ErrInvalidState)
	ErrInvalidEmail    = errors.New("email is required")
	ErrClosed          = errors.New("push channel is closed")
	// ErrDenied is the outcome error of a request rejected on the approving device.
	ErrDenied = errors.New("push login denied")
)
