// Package secrets provides AES-256-GCM encryption with compound key derivation.
//
// The encryption key is derived with HKDF-SHA256 from two inputs: an application key shared by
// the whole deployment and a scope key (for example an account's key or an ID-derived salt). A
// ciphertext produced for one scope cannot be opened with another scope's key.
//
//	sealed, err := secrets.EncryptString(appKey, scopeKey, "JBSWY3DPEHPK3PXP")
//	raw, err := secrets.DecryptBytes(appKey, scopeKey, sealedBytes)
//
// Both keys must be 32 bytes. Ciphertexts are nonce || sealed data; string helpers use standard
// base64. Derived keys are zeroed after use.
package secrets
