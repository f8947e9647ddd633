// Package account declares the account model and the collaborator interfaces the authentication
// core consumes: account lookup, password credentials, profile metadata (including the trusted
// device list) and the vault PIN record.
//
// The core never stores raw passwords. MemoryStore is a complete in-process implementation used by
// tests and local development; integration/database/pg provides the Postgres-backed one.
package account
