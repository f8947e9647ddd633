package authenticator

import "errors"

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrInvalidEntry   = errors.New("invalid authenticator entry")
)
