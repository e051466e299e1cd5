// Package resilience guards calls to routing and availability backends.
//
//   - CircuitBreaker fails fast while a backend keeps failing.
//   - Bulkhead bounds the number of in-flight calls to one backend.
//   - RateLimiter bounds the request rate to one backend.
//   - Retry repeats idempotent fetches with exponential backoff.
//
// Refusals are reported as SERVICE_UNAVAILABLE AppErrors so callers can tell
// them apart from backend answers.
package resilience
