// Package goTrust provides credential hashing with self-describing hash strings
// and trust decisions for FIDO authenticators based on Metadata Service status
// reports.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goTrust is the public surface. It exposes [Engine], [Builder], [Config], and
// value types such as [MetricsSnapshot]. Key derivation lives in hashing,
// status evaluation in metadata, persistence in credential and
// metadata/blobstore. Audit dispatch lives under internal/ and is never
// exported.
//
// # What this package must NOT do
//
//   - Log or audit plaintext passwords or derived keys.
//   - Fetch catalogs from the network; callers pass a decoded TOC.
//   - Import any sub-package that re-imports goTrust (no import cycles).
//
// # Performance contract
//
// CheckAuthenticator is lock-free and performs no I/O. VerifyPassword costs one
// key derivation and one credential store read; writing an upgraded hash adds
// a second derivation and one compare-and-swap.
package goTrust
