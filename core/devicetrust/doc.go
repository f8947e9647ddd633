// Package devicetrust keeps the per-account list of trusted device identifiers.
//
// A trusted device skips the second verification factor at login. The list is ordered by
// insertion and capped at MaxDevices; registering past the cap evicts the oldest entries.
// Registration is idempotent and is applied through an atomic read-modify-write on the store.
//
// Lookups fail closed: when the list cannot be read, IsTrusted reports false so the caller
// falls back to verification instead of letting the device through.
package devicetrust
