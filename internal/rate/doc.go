// Package rate provides Redis-backed fixed-window rate limiting for
// security-sensitive authentication operations.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - hl:  — login per-identifier
//   - hli: — login per-IP
//   - hr:  — password reset requests per-identifier
package rate
