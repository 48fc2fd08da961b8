package authcore

import (
	"context"
	"errors"
)

// EnableMFA turns on login challenges for the user after re-verifying
// their password. Subsequent logins park on a one-time code until
// [Engine.ConfirmLoginMFA].
func (e *Engine) EnableMFA(ctx context.Context, userID, pass string) error {
	return e.setMFA(ctx, userID, pass, true)
}

// DisableMFA turns off login challenges, again gated on the password. Any
// pending challenge code is discarded.
func (e *Engine) DisableMFA(ctx context.Context, userID, pass string) error {
	user, err := e.lookupForMFA(ctx, userID, pass)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return ErrMFANotEnabled
	}

	if err := e.userStore.UpdateMFA(ctx, userID, false, ""); err != nil {
		return ErrStoreUnavailable
	}
	if err := e.mfaCodes.Cancel(ctx, userID); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricMFADisabled)
	e.emitAudit(ctx, auditEventMFADisabled, true, userID, "", nil, nil)
	return nil
}

func (e *Engine) setMFA(ctx context.Context, userID, pass string, enabled bool) error {
	user, err := e.lookupForMFA(ctx, userID, pass)
	if err != nil {
		return err
	}
	if user.MFAEnabled == enabled {
		return nil
	}

	if err := e.userStore.UpdateMFA(ctx, userID, enabled, ""); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricMFAEnabled)
	e.emitAudit(ctx, auditEventMFAEnabled, true, userID, "", nil, nil)
	return nil
}

func (e *Engine) lookupForMFA(ctx context.Context, userID, pass string) (UserRecord, error) {
	if e == nil || e.hasher == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	user, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, ErrStoreUnavailable
	}

	if !e.hasher.Verify(pass, user.Hash) {
		e.emitAudit(ctx, auditEventMFAEnabled, false, userID, "", ErrInvalidCredentials, nil)
		return UserRecord{}, ErrInvalidCredentials
	}

	return user, nil
}
