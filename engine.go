package authcore

import (
	"context"
	"errors"

	"github.com/hostelworks/authcore/internal/audit"
	"github.com/hostelworks/authcore/internal/metrics"
	"github.com/hostelworks/authcore/internal/rate"
	"github.com/hostelworks/authcore/jwt"
	"github.com/hostelworks/authcore/otp"
	"github.com/hostelworks/authcore/password"
	"github.com/hostelworks/authcore/session"
)

// Engine is the authentication orchestrator. Construct via [Builder];
// safe for concurrent use. All dependencies are wired at Build time and
// immutable afterward.
type Engine struct {
	config       Config
	userStore    UserStore
	notifier     Notifier
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	mfaCodes     *otp.Service
	resetCodes   *otp.Service
	audit        *audit.Dispatcher
	metrics      *metrics.Metrics
	hasher       *password.Hasher
	jwtManager   *jwt.Manager
}

// Close flushes and stops the audit dispatcher. Call once when the engine
// is retired.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed under load.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateAccess validates a token under the engine-wide default mode.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	return e.Validate(ctx, tokenStr, ModeInherit)
}

// Validate verifies an access token and returns the caller's identity.
//
// Every mode checks the signature and expiry. ModeStrict additionally
// requires the backing session to be active and unexpired, and refreshes
// its last-activity timestamp; this is the path that honors revocation
// mid-token-lifetime. A token whose session was deactivated fails here
// with [ErrSessionNotFound] even though its signature is still good.
func (e *Engine) Validate(ctx context.Context, tokenStr string, routeMode ValidationMode) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(tokenStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	effectiveMode, err := e.resolveRouteMode(routeMode)
	if err != nil {
		return nil, err
	}

	if effectiveMode == ModeJWTOnly {
		return resultFromClaims(claims), nil
	}

	// Strict path: Redis is mandatory and fail-closed.
	if e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	sess, err := e.sessionStore.TouchByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, ErrStoreUnavailable
	}
	if sess.SessionID != claims.SID {
		return nil, ErrSessionNotFound
	}

	return &AuthResult{
		UserID:     sess.UserID,
		Identifier: claims.Subject,
		Role:       Role(sess.Role),
		SessionID:  sess.SessionID,
	}, nil
}

func resultFromClaims(claims *jwt.Claims) *AuthResult {
	return &AuthResult{
		UserID:     claims.UID,
		Identifier: claims.Subject,
		Role:       Role(claims.Role),
		SessionID:  claims.SID,
	}
}

func (e *Engine) resolveRouteMode(routeMode ValidationMode) (ValidationMode, error) {
	switch routeMode {
	case ModeInherit:
		return e.config.ValidationMode, nil
	case ModeJWTOnly, ModeStrict:
		return routeMode, nil
	default:
		return 0, ErrTokenInvalid
	}
}

// Session records cap each metadata string at 255 bytes. The values are
// display-only, so anything longer is clipped rather than failing the login.
const maxClientMetadataLen = 255

func clipClientMetadata(s string) string {
	if len(s) > maxClientMetadataLen {
		return s[:maxClientMetadataLen]
	}
	return s
}

// openSession creates the session record and issues its bound token. The
// token is signed first so the record can index its hash.
func (e *Engine) openSession(ctx context.Context, user UserRecord) (string, *session.Session, error) {
	if e.sessionStore == nil {
		return "", nil, ErrEngineNotReady
	}

	// The session ID inside the token must match the stored record, so the
	// ID is fixed up front and the record is keyed under it after signing.
	sessionID := session.NewID()

	token, err := e.jwtManager.Issue(user.Identifier, user.UserID, string(user.Role), sessionID)
	if err != nil {
		return "", nil, err
	}

	sess, err := e.sessionStore.CreateWithID(
		ctx,
		sessionID,
		user.UserID,
		string(user.Role),
		token,
		clipClientMetadata(clientIPFromContext(ctx)),
		clipClientMetadata(userAgentFromContext(ctx)),
		e.config.Session.TTL,
	)
	if err != nil {
		return "", nil, ErrStoreUnavailable
	}

	e.metricInc(MetricSessionCreated)
	return token, sess, nil
}
