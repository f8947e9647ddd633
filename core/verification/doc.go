// Package verification issues, delivers and checks out-of-band one-time codes.
//
// Each (email, purpose) pair has at most one current code. Issuing a new code overwrites the
// previous one, so an old code stops verifying the moment a new one is saved. A code is consumed
// at most once: the successful check deletes it with an atomic compare-and-delete, which makes a
// replay fail even when two requests race.
//
// Lifecycle per (email, purpose):
//
//	NoCode -> Issued -> Consumed | Expired | Superseded | Revoked
//
// Issue saves the code before dispatching it. If dispatch fails the code is removed again and the
// caller gets an error matching autherr.ErrUnavailable, so a code that was never delivered cannot
// be used. Expiry is decided from the server clock against the stored issue time. Records are kept
// for twice the TTL so a late attempt reports autherr.ErrExpired instead of a plain mismatch.
//
// Hardening on top of the basic contract:
//
//   - a resend within the cooldown fails with autherr.ErrCooldown and a retry-after hint
//   - each code accepts a limited number of wrong guesses, the last one revokes it and
//     returns autherr.ErrTooManyAttempts
//
// Codes are never logged.
package verification
