// Package vaultpin gates the sensitive vault views behind a short numeric PIN.
//
// The PIN (4 to 6 ASCII digits) is stored only as an argon2id hash; candidates are hashed with the
// parameters embedded in the stored hash and compared in constant time. "012345" and "12345" are
// different PINs.
//
// Unlocking is scoped to one explicit session: Unlock stamps the session data and returns the
// updated session for the caller to persist. A new session starts locked. Disabling the gate
// requires the current PIN even when the session is already unlocked.
//
// Wrong PINs are counted per account. After MaxAttempts failures VerifyPin fails with
// autherr.ErrTooManyAttempts carrying a retry-after hint until the lockout window refills.
package vaultpin
