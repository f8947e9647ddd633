package secrets

import "errors"

var (
	ErrInvalidAppKey      = errors.New("application key must be 32 bytes")
	ErrInvalidScopeKey    = errors.New("scope key must be 32 bytes")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed")
)
