package authcore

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/hostelworks/authcore/internal/rate"
	"github.com/hostelworks/authcore/otp"
)

// ChangePassword rotates a user's credential after re-verifying the current
// one, then deactivates every session of the user. It returns how many live
// sessions the change revoked; the caller is expected to log in again.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPass, newPass string) (int, error) {
	if e == nil || e.hasher == nil {
		return 0, ErrEngineNotReady
	}
	if len(newPass) < e.config.Reset.MinPasswordLength {
		e.emitAudit(ctx, auditEventPasswordChange, false, userID, "", ErrPasswordPolicy, nil)
		return 0, ErrPasswordPolicy
	}

	user, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventPasswordChange, false, userID, "", ErrUserNotFound, nil)
			return 0, ErrUserNotFound
		}
		return 0, ErrStoreUnavailable
	}

	if !e.hasher.Verify(oldPass, user.Hash) {
		e.emitAudit(ctx, auditEventPasswordChange, false, userID, "", ErrInvalidCredentials, nil)
		return 0, ErrInvalidCredentials
	}
	oldPass = ""

	newHash, err := e.hasher.Hash(newPass)
	if err != nil {
		return 0, err
	}
	newPass = ""

	if err := e.userStore.UpdateCredential(ctx, userID, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordChange, false, userID, "", ErrStoreUnavailable, nil)
		return 0, ErrStoreUnavailable
	}

	revoked, err := e.revokeAllSessions(ctx, user)
	if err != nil {
		// Credential already rotated; report the revocation failure rather
		// than pretending the change did not happen.
		e.emitAudit(ctx, auditEventPasswordChange, false, userID, "", ErrStoreUnavailable, func() map[string]string {
			return map[string]string{"reason": "session_revocation_failed"}
		})
		return revoked, ErrStoreUnavailable
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, userID, "", nil, func() map[string]string {
		return map[string]string{"sessions_revoked": strconv.Itoa(revoked)}
	})

	return revoked, nil
}

// RequestPasswordReset issues a reset code for the identifier and delivers
// it through the notifier. The call is enumeration-safe: an unknown
// identifier returns nil exactly like a known one, and the rate limiter
// burns budget for both.
func (e *Engine) RequestPasswordReset(ctx context.Context, identifier string) error {
	if e == nil || e.resetCodes == nil {
		return ErrEngineNotReady
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckReset(ctx, identifier); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.emitRateLimit(ctx, "password_reset", identifier)
				return ErrResetRateLimited
			}
			return ErrStoreUnavailable
		}
	}

	user, err := e.userStore.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return ErrStoreUnavailable
	}

	code, err := e.resetCodes.Generate(ctx, user.Identifier)
	if err != nil {
		return ErrStoreUnavailable
	}
	if err := e.notifier.Send(ctx, user.Identifier, code); err != nil {
		log.Print("authcore: reset code delivery failed")
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetReq, true, user.UserID, "", nil, func() map[string]string {
		return map[string]string{"identifier": identifier}
	})

	return nil
}

// ConfirmPasswordReset redeems a reset code, installs the new password, and
// deactivates every session of the user. The code is single use regardless
// of outcome past the consume point.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, identifier, code, newPass string) error {
	if e == nil || e.resetCodes == nil {
		return ErrEngineNotReady
	}
	if len(newPass) < e.config.Reset.MinPasswordLength {
		e.emitAudit(ctx, auditEventPasswordResetDone, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return ErrPasswordPolicy
	}

	user, err := e.userStore.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Same shape as a wrong code.
			e.metricInc(MetricCodeRejected)
			e.emitAudit(ctx, auditEventPasswordResetDone, false, "", "", ErrCodeInvalid, func() map[string]string {
				return map[string]string{"identifier": identifier, "reason": "user_not_found"}
			})
			return ErrCodeInvalid
		}
		return ErrStoreUnavailable
	}

	if err := e.resetCodes.Consume(ctx, user.Identifier, code); err != nil {
		if errors.Is(err, otp.ErrStoreUnavailable) {
			return ErrStoreUnavailable
		}
		e.metricInc(MetricCodeRejected)
		e.emitAudit(ctx, auditEventPasswordResetDone, false, user.UserID, "", ErrCodeInvalid, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return ErrCodeInvalid
	}

	newHash, err := e.hasher.Hash(newPass)
	if err != nil {
		return err
	}
	newPass = ""

	if err := e.userStore.UpdateCredential(ctx, user.UserID, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordResetDone, false, user.UserID, "", ErrStoreUnavailable, nil)
		return ErrStoreUnavailable
	}

	if _, err := e.revokeAllSessions(ctx, user); err != nil {
		e.emitAudit(ctx, auditEventPasswordResetDone, false, user.UserID, "", ErrStoreUnavailable, func() map[string]string {
			return map[string]string{"reason": "session_revocation_failed"}
		})
		return ErrStoreUnavailable
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetDone, true, user.UserID, "", nil, func() map[string]string {
		return map[string]string{"identifier": identifier}
	})

	return nil
}

func (e *Engine) revokeAllSessions(ctx context.Context, user UserRecord) (int, error) {
	if e.sessionStore == nil {
		return 0, nil
	}

	revoked, err := e.sessionStore.DeactivateAllForUser(ctx, user.UserID)
	if err != nil {
		return revoked, err
	}
	for i := 0; i < revoked; i++ {
		e.metricInc(MetricSessionDeactivated)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, user.Identifier, clientIPFromContext(ctx)); err != nil {
			log.Print("authcore: login limiter reset failed")
		}
	}

	return revoked, nil
}
