// Package hashing implements credential hashing strategies over a compact
// persisted record.
//
// # Record format
//
// Records are encoded as:
//
//	$<id>$<k>=<v>,...$<salt>$<hash>
//
// The id selects the [Algorithm]; [PBKDF2] ("pbkdf2", PBKDF2-HMAC-SHA-512) and
// [Argon2] ("argon2id") are provided. Derived keys are standard base64 without
// padding.
//
// # Parameter fallback
//
// A missing or malformed cost parameter never fails a hash operation: the
// algorithm default is used and the optional [FallbackFunc] is notified. A
// missing salt always fails.
//
// # What this package must NOT do
//
//   - Store or retrieve credential records.
//   - Log plaintext passwords.
//   - Import any other goTrust package.
package hashing
