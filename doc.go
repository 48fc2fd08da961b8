// Package authcore provides the authentication and session-lifecycle core for a
// hostel-management backend: credential hashing, JWT access tokens, Redis-backed
// revocable sessions, one-time codes for MFA and password reset, and role-based
// access control.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (AuthResult, SessionInfo, LoginResult, etc.). Flow orchestration,
// audit dispatch, rate limiting, and metrics live under internal/ and are never
// exported. Leaf packages password, jwt, session, and otp are reusable on their
// own.
//
// # Tokens vs sessions
//
// Access tokens are stateless JWTs: [jwt.Manager] verification never consults the
// session store, so a deactivated session's token remains cryptographically valid
// until its natural expiry. Revocation (logout, password change, per-session
// termination) is enforced only through the session store. Callers that must
// honor revocation mid-lifetime validate with [ModeStrict], which performs the
// session liveness check as an explicit step; [ModeJWTOnly] trades that check away
// for a zero-roundtrip hot path.
package authcore
