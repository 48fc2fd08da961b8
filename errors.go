package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned for a wrong password or an unknown
	// identifier at login; the two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid is returned for a malformed, unsigned, or expired token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrPermissionDenied is returned when a valid identity lacks the required role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrCodeInvalid is returned when a one-time code is missing, expired,
	// already used, or mismatched; all sub-cases share one message.
	ErrCodeInvalid = errors.New("invalid one-time code")
	// ErrSessionNotFound is returned when a session does not exist, is no longer
	// valid, or does not belong to the caller. Ownership violations surface as
	// not-found rather than forbidden so callers cannot probe for other users'
	// session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUserNotFound is returned when a referenced user record does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned for a duplicate identifier at signup.
	ErrAccountExists = errors.New("account already exists")
	// ErrMFARequired is returned when login cannot complete without a second factor.
	ErrMFARequired = errors.New("mfa challenge required")
	// ErrMFANotEnabled is returned when an MFA operation targets an account
	// without MFA configured.
	ErrMFANotEnabled = errors.New("mfa not enabled")
	// ErrPasswordPolicy is returned when a new password fails the minimum
	// length requirement.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrLoginRateLimited is returned when the login attempt budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrResetRateLimited is returned when the reset request budget is exhausted.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrStoreUnavailable wraps unexpected backing-store failures. It is distinct
	// from the taxonomy above: it signals infrastructure trouble, never an
	// authentication decision.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)
