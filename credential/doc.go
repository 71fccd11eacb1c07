// Package credential persists encoded password hash strings per user.
//
// # Design
//
// A Store keeps exactly one hashing.HashString per user ID. Records are
// written whole; Replace is a compare-and-swap used to upgrade a hash after a
// successful verification without clobbering a concurrent password change.
// The Redis store uses WATCH/MULTI optimistic transactions with bounded
// retries. The Postgres store uses a conditional UPDATE.
//
// # What this package must NOT do
//
//   - Derive, compare, or log password material.
//   - Import goTrust or the metadata packages.
package credential
