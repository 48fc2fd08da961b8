package authcore

// Role is one of the fixed staff/guest roles recognized by the engine.
type Role string

const (
	// RoleCustomer is the default role assigned at signup.
	RoleCustomer Role = "customer"
	// RoleCleaner is housekeeping staff.
	RoleCleaner Role = "cleaner"
	// RoleReceptionist is front-desk staff.
	RoleReceptionist Role = "receptionist"
	// RoleManager is the highest role.
	RoleManager Role = "manager"
)

// roleLevels orders roles for hierarchical checks. Cleaners sit on the staff
// tier with receptionists. Unknown roles map to level 0 and therefore never
// satisfy any requirement (fail closed).
var roleLevels = map[Role]int{
	RoleCustomer:     1,
	RoleCleaner:      2,
	RoleReceptionist: 2,
	RoleManager:      3,
}

// Level returns the ordinal level of r, or 0 for unknown roles.
func (r Role) Level() int {
	return roleLevels[r]
}

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	return roleLevels[r] > 0
}

// Authorize passes res through unchanged when its role is in allowed, and
// returns [ErrPermissionDenied] otherwise. It is a pure check over an
// already-verified [AuthResult]: callers must obtain res from
// [Engine.Validate] first, since Authorize itself never re-verifies the
// token or consults the session store.
func Authorize(res *AuthResult, allowed ...Role) (*AuthResult, error) {
	if res == nil {
		return nil, ErrPermissionDenied
	}
	for _, role := range allowed {
		if res.Role == role {
			return res, nil
		}
	}
	return nil, ErrPermissionDenied
}

// AuthorizeLevel grants access when the caller's role level is at least the
// level of min. A requirement naming an unknown role is unreachable: every
// caller is denied. This is the deliberate fail-closed policy for
// misconfigured route requirements.
func AuthorizeLevel(res *AuthResult, min Role) (*AuthResult, error) {
	if res == nil {
		return nil, ErrPermissionDenied
	}
	required := min.Level()
	if required == 0 {
		return nil, ErrPermissionDenied
	}
	if res.Role.Level() < required {
		return nil, ErrPermissionDenied
	}
	return res, nil
}
