package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the required length of both input keys.
const KeySize = 32

const hkdfInfo = "lifevault/secrets/v1"

// GenerateKey returns a random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// ParseHexKey decodes a hex-encoded 32-byte key, as stored in configuration.
func ParseHexKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidAppKey
	}
	return key, nil
}

// ScopeKey derives a 32-byte scope key from an identifier, for callers that have no stored
// per-scope key.
func ScopeKey(id string) []byte {
	sum := sha256.Sum256([]byte("lifevault/scope/" + id))
	return sum[:]
}

// EncryptBytes seals plaintext with the key derived from appKey and scopeKey.
func EncryptBytes(appKey, scopeKey, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(appKey, scopeKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptBytes opens a ciphertext produced by EncryptBytes.
func DecryptBytes(appKey, scopeKey, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(appKey, scopeKey)
	if err != nil {
		return nil, err
	}

	ns := gcm.NonceSize()
	if len(ciphertext) < ns+gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := gcm.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptString seals plaintext and returns it base64-encoded.
func EncryptString(appKey, scopeKey []byte, plaintext string) (string, error) {
	sealed, err := EncryptBytes(appKey, scopeKey, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a base64 ciphertext produced by EncryptString.
func DecryptString(appKey, scopeKey []byte, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := DecryptBytes(appKey, scopeKey, raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(appKey, scopeKey []byte) (cipher.AEAD, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidAppKey
	}
	if len(scopeKey) != KeySize {
		return nil, ErrInvalidScopeKey
	}

	key := make([]byte, KeySize)
	defer clear(key)
	if _, err := io.ReadFull(hkdf.New(sha256.New, appKey, scopeKey, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
