// Package authenticator renders the rolling codes of the user's stored TOTP entries and enrolls
// new ones.
//
// An Entry never holds its raw secret. CurrentCode asks a Revealer for the secret just in time,
// keeps it only in a bounded in-memory LRU (entries are zeroed on eviction) and derives the code
// with pkg/totp. A reveal denied for lack of scope surfaces as autherr.ErrNotPermitted, distinct
// from autherr.ErrUnavailable for a failing secret service.
//
// SealedRevealer is a Revealer whose references are the secrets themselves, AES-GCM sealed under
// a key derived from the application key and the owning account. References can be persisted
// with the entry and open again in any process configured with the same application key.
package authenticator
