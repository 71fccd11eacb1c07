// Package limiters provides the password verification throttle built on the
// internal/rate counter.
//
// [VerifyLimiter] counts failed verifications per user in a fixed window and
// refuses further attempts once the budget is spent. Methods on a nil limiter
// are no-ops.
//
// # What this package must NOT do
//
//   - Import goTrust or any sibling internal package except internal/rate.
//   - Decide consequences beyond counting. The engine maps results to errors.
package limiters
