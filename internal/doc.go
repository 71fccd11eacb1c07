// Package internal holds helpers that are private to goTrust.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: per-user password verification throttle
//   - rate: Redis-backed fixed-window counters
//
// # What this package must NOT do
//
//   - Export types that appear in the public goTrust API.
//   - Be imported by any package outside the goTrust module.
package internal
