package vaultpin

import "errors"

var (
	ErrInvalidPin = errors.New("pin must be 4 to 6 digits")
	ErrNotEnabled = errors.New("vault pin is not enabled")
	ErrNoSession  = errors.New("session has no account")
)
