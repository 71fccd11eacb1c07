// Package rate provides the Redis fixed-window counter that goTrust limiters
// are built on.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. The counter disappears when the
// window ends; callers reset it early with Reset.
//
// # What this package must NOT do
//
//   - Implement policy (thresholds live in internal/limiters).
//   - Be imported outside the goTrust module.
package rate
