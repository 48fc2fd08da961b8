package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/hostelworks/authcore/internal/audit"
	internalmetrics "github.com/hostelworks/authcore/internal/metrics"
)

// UserRecord is the account record returned by [UserStore]. The credential
// hash is opaque to everything except the password package and is never
// logged or audited in any form.
type UserRecord struct {
	UserID     string
	Identifier string
	Hash       string
	Role       Role
	MFAEnabled bool
	MFASecret  string
}

// CreateUserInput is the input for [UserStore.Create].
type CreateUserInput struct {
	Identifier string
	Hash       string
	Role       Role
}

// UserStore is the interface callers implement to integrate authcore with
// their user database. The engine only reads and updates the fields named
// here; account ownership stays with the caller. A production implementation
// backed by Postgres ships in userstore/postgres, an in-memory one in
// userstore/memory.
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	FindByID(ctx context.Context, userID string) (UserRecord, error)
	Create(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdateCredential(ctx context.Context, userID string, hash string) error
	UpdateRole(ctx context.Context, userID string, role Role) error
	UpdateMFA(ctx context.Context, userID string, enabled bool, secret string) error
}

// Notifier delivers one-time codes out of band (email in the original
// deployment). Delivery failure is non-fatal: the engine logs and continues,
// so implementations should do their own retrying if they need it.
type Notifier interface {
	Send(ctx context.Context, destination, code string) error
}

// NoOpNotifier discards codes. Useful in tests and as the default when no
// notifier is configured.
type NoOpNotifier struct{}

// Send implements [Notifier].
func (NoOpNotifier) Send(context.Context, string, string) error { return nil }

// AuthResult is the verified identity produced by [Engine.Validate], consumed
// by [Authorize] and [AuthorizeLevel].
type AuthResult struct {
	UserID     string
	Identifier string
	Role       Role
	SessionID  string
}

// LoginResult is returned by [Engine.Login] and [Engine.ConfirmLoginMFA].
// When MFARequired is set no token was issued: the caller must complete the
// challenge via [Engine.ConfirmLoginMFA] before a session exists.
type LoginResult struct {
	Token string
	Role  Role

	MFARequired bool
}

// SignupResult is returned by [Engine.Signup]. Signup auto-logs-in, so a
// token and session are always present on success.
type SignupResult struct {
	UserID string
	Role   Role
	Token  string
}

// SessionInfo is the caller-visible view of one session, returned by
// [Engine.Sessions] ordered most-recent-activity first.
type SessionInfo struct {
	SessionID    string
	IP           string
	UserAgent    string
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events, one per
// line, to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess counts completed logins.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginMFARequired counts logins parked on an MFA challenge.
	MetricLoginMFARequired = internalmetrics.MetricLoginMFARequired
	// MetricSignupSuccess counts created accounts.
	MetricSignupSuccess = internalmetrics.MetricSignupSuccess
	// MetricSignupDuplicate counts signups rejected for a taken identifier.
	MetricSignupDuplicate = internalmetrics.MetricSignupDuplicate
	// MetricSessionCreated counts sessions created.
	MetricSessionCreated = internalmetrics.MetricSessionCreated
	// MetricSessionDeactivated counts sessions deactivated, by any path.
	MetricSessionDeactivated = internalmetrics.MetricSessionDeactivated
	// MetricLogout counts single-session logouts.
	MetricLogout = internalmetrics.MetricLogout
	// MetricLogoutAll counts all-session logouts.
	MetricLogoutAll = internalmetrics.MetricLogoutAll
	// MetricPasswordChangeSuccess counts completed password changes.
	MetricPasswordChangeSuccess = internalmetrics.MetricPasswordChangeSuccess
	// MetricPasswordResetRequest counts reset requests (known identifier only).
	MetricPasswordResetRequest = internalmetrics.MetricPasswordResetRequest
	// MetricPasswordResetSuccess counts completed resets.
	MetricPasswordResetSuccess = internalmetrics.MetricPasswordResetSuccess
	// MetricCodeRejected counts one-time codes that failed verification.
	MetricCodeRejected = internalmetrics.MetricCodeRejected
	// MetricMFAEnabled counts MFA enable operations.
	MetricMFAEnabled = internalmetrics.MetricMFAEnabled
	// MetricMFADisabled counts MFA disable operations.
	MetricMFADisabled = internalmetrics.MetricMFADisabled
)

// Metrics holds atomic counters for engine operations.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot
