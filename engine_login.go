package authcore

import (
	"context"
	"errors"
	"log"

	"github.com/hostelworks/authcore/internal/rate"
	"github.com/hostelworks/authcore/otp"
)

// Login verifies the identifier/password pair.
//
// For accounts without MFA a session is created and the result carries its
// token. For MFA-enabled accounts no session exists yet: the result has
// MFARequired set, a one-time code is sent through the notifier, and the
// caller must finish with [Engine.ConfirmLoginMFA]. Unknown identifier and
// wrong password both return [ErrInvalidCredentials]; the two are
// deliberately indistinguishable.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*LoginResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
					return map[string]string{"identifier": identifier}
				})
				e.emitRateLimit(ctx, "login", identifier)
				return nil, ErrLoginRateLimited
			}
			return nil, ErrStoreUnavailable
		}
	}

	if identifier == "" || pass == "" {
		return nil, e.failLogin(ctx, identifier, ip, "", "empty_input")
	}

	user, err := e.userStore.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.failLogin(ctx, identifier, ip, "", "user_not_found")
		}
		return nil, ErrStoreUnavailable
	}

	if !e.hasher.Verify(pass, user.Hash) {
		return nil, e.failLogin(ctx, identifier, ip, user.UserID, "password_mismatch")
	}
	pass = ""

	if user.MFAEnabled {
		code, err := e.mfaCodes.Generate(ctx, user.UserID)
		if err != nil {
			e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", ErrStoreUnavailable, func() map[string]string {
				return map[string]string{"identifier": identifier, "reason": "code_generation"}
			})
			return nil, ErrStoreUnavailable
		}
		// Code delivery is best-effort; login stays parked on the challenge.
		if err := e.notifier.Send(ctx, user.Identifier, code); err != nil {
			log.Print("authcore: mfa code delivery failed")
		}

		e.metricInc(MetricLoginMFARequired)
		e.emitAudit(ctx, auditEventLoginMFARequired, true, user.UserID, "", nil, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})

		return &LoginResult{Role: user.Role, MFARequired: true}, nil
	}

	return e.completeLogin(ctx, user, auditEventLoginSuccess)
}

// ConfirmLoginMFA redeems the one-time code sent by [Engine.Login] and
// completes the parked login. The code is single use: a second confirm with
// the same code fails with [ErrCodeInvalid] even inside the code's TTL.
func (e *Engine) ConfirmLoginMFA(ctx context.Context, identifier, code string) (*LoginResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.userStore.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Same shape as a wrong code; no account probing via this path.
			e.metricInc(MetricCodeRejected)
			e.emitAudit(ctx, auditEventLoginMFAFailure, false, "", "", ErrCodeInvalid, func() map[string]string {
				return map[string]string{"identifier": identifier, "reason": "user_not_found"}
			})
			return nil, ErrCodeInvalid
		}
		return nil, ErrStoreUnavailable
	}

	if err := e.mfaCodes.Consume(ctx, user.UserID, code); err != nil {
		if errors.Is(err, otp.ErrStoreUnavailable) {
			return nil, ErrStoreUnavailable
		}
		e.metricInc(MetricCodeRejected)
		e.emitAudit(ctx, auditEventLoginMFAFailure, false, user.UserID, "", ErrCodeInvalid, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrCodeInvalid
	}

	return e.completeLogin(ctx, user, auditEventLoginMFAConfirmed)
}

func (e *Engine) completeLogin(ctx context.Context, user UserRecord, eventType string) (*LoginResult, error) {
	token, sess, err := e.openSession(ctx, user)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", err, func() map[string]string {
			return map[string]string{"identifier": user.Identifier, "reason": "session_open"}
		})
		return nil, err
	}

	if e.rateLimiter != nil {
		// Limiter reset is best-effort; it only shortens the cooldown.
		if err := e.rateLimiter.ResetLogin(ctx, user.Identifier, clientIPFromContext(ctx)); err != nil {
			log.Print("authcore: login limiter reset failed")
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, eventType, true, user.UserID, sess.SessionID, nil, func() map[string]string {
		return map[string]string{"identifier": user.Identifier}
	})

	return &LoginResult{Token: token, Role: user.Role}, nil
}

func (e *Engine) failLogin(ctx context.Context, identifier, ip, userID, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, "", ErrLoginRateLimited, func() map[string]string {
					return map[string]string{"identifier": identifier}
				})
				e.emitRateLimit(ctx, "login", identifier)
				return ErrLoginRateLimited
			}
			return ErrStoreUnavailable
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"identifier": identifier, "reason": reason}
	})
	return ErrInvalidCredentials
}

// Signup creates an account with the configured default role and logs it
// in, so the result always carries a live token. A taken identifier fails
// with [ErrAccountExists].
func (e *Engine) Signup(ctx context.Context, identifier, pass string) (*SignupResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return nil, ErrPermissionDenied
	}
	if identifier == "" || len(pass) < e.config.Reset.MinPasswordLength {
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrPasswordPolicy
	}

	hash, err := e.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}
	pass = ""

	user, err := e.userStore.Create(ctx, CreateUserInput{
		Identifier: identifier,
		Hash:       hash,
		Role:       e.config.Account.DefaultRole,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricSignupDuplicate)
			e.emitAudit(ctx, auditEventSignupDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			return nil, ErrAccountExists
		}
		return nil, ErrStoreUnavailable
	}

	token, sess, err := e.openSession(ctx, user)
	if err != nil {
		e.emitAudit(ctx, auditEventSignupFailure, false, user.UserID, "", err, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "session_open"}
		})
		return nil, err
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, user.UserID, sess.SessionID, nil, func() map[string]string {
		return map[string]string{"identifier": identifier, "role": string(user.Role)}
	})

	return &SignupResult{UserID: user.UserID, Role: user.Role, Token: token}, nil
}
