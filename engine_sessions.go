package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/hostelworks/authcore/session"
)

// Logout deactivates the session behind the presented token. Logging out
// an already-revoked or unknown token returns [ErrSessionNotFound]; the
// record itself stays until its TTL reclaims it.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(tokenStr)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, "", "", ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	if err := e.sessionStore.DeactivateByToken(ctx, tokenStr); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.emitAudit(ctx, auditEventLogoutSession, false, claims.UID, claims.SID, ErrSessionNotFound, nil)
			return ErrSessionNotFound
		}
		return ErrStoreUnavailable
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionDeactivated)
	e.emitAudit(ctx, auditEventLogoutSession, true, claims.UID, claims.SID, nil, nil)
	return nil
}

// LogoutAll deactivates every session of the user and returns how many
// were live. Zero live sessions is a success, not an error.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}

	revoked, err := e.sessionStore.DeactivateAllForUser(ctx, userID)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", ErrStoreUnavailable, nil)
		return revoked, ErrStoreUnavailable
	}

	e.metricInc(MetricLogoutAll)
	for i := 0; i < revoked; i++ {
		e.metricInc(MetricSessionDeactivated)
	}
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, nil)
	return revoked, nil
}

// Sessions lists the user's live sessions, most recently active first,
// with the client metadata captured at login.
func (e *Engine) Sessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	active, err := e.sessionStore.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, ErrStoreUnavailable
	}

	infos := make([]SessionInfo, 0, len(active))
	for _, sess := range active {
		infos = append(infos, SessionInfo{
			SessionID:    sess.SessionID,
			IP:           sess.IP,
			UserAgent:    sess.UserAgent,
			CreatedAt:    time.Unix(sess.CreatedAt, 0),
			LastActivity: time.Unix(sess.LastActivity, 0),
			ExpiresAt:    time.Unix(sess.ExpiresAt, 0),
		})
	}
	return infos, nil
}

// TerminateSession deactivates one session by ID on behalf of its owner.
// A session that does not exist, is already inactive, or belongs to a
// different user uniformly returns [ErrSessionNotFound], so session IDs
// cannot be probed across accounts.
func (e *Engine) TerminateSession(ctx context.Context, userID, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	sess, err := e.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.emitAudit(ctx, auditEventSessionTerminated, false, userID, sessionID, ErrSessionNotFound, nil)
			return ErrSessionNotFound
		}
		return ErrStoreUnavailable
	}
	if sess.UserID != userID || !sess.Valid(time.Now()) {
		e.emitAudit(ctx, auditEventSessionTerminated, false, userID, sessionID, ErrSessionNotFound, nil)
		return ErrSessionNotFound
	}

	if err := e.sessionStore.DeactivateByID(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return ErrStoreUnavailable
	}

	e.metricInc(MetricSessionDeactivated)
	e.emitAudit(ctx, auditEventSessionTerminated, true, userID, sessionID, nil, nil)
	return nil
}

// PurgeExpiredSessions drops dangling index entries left behind by
// TTL-reclaimed sessions for one user. Purely an optimization; validity
// never depends on it running.
func (e *Engine) PurgeExpiredSessions(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}

	removed, err := e.sessionStore.PurgeExpired(ctx, userID)
	if err != nil {
		return 0, ErrStoreUnavailable
	}
	return removed, nil
}
