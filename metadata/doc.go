// Package metadata decides whether an authenticator model is trusted, based on
// its metadata-service catalog record and metadata statement.
//
// # Entries
//
// An [Entry] is built once per catalog refresh and is immutable afterwards.
// Integrity is checked at construction: a statement blob whose SHA-256 digest
// does not match the catalog's reference hash yields an entry that records the
// failure instead of an error, so a whole catalog can be ingested in one pass.
// [Entry.CheckValid] reports that failure on every call.
//
// # Status history
//
// Without a recorded failure, the most recent status report that has taken
// effect decides: INVALID-tier statuses reject, UPDATE_AVAILABLE accepts with
// an advisory, anything else accepts. If no report has taken effect the entry
// is rejected.
//
// # Catalog
//
// [Catalog] swaps whole [Snapshot] values atomically. Fetching catalogs and
// resolving their signing keys is left to callers.
package metadata
