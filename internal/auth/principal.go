package auth

// Principal is an authenticated caller with resolved tenant, roles and
// effective capability set.
type Principal struct {
	UserID         string
	OrganizationID string
	Roles          []string
	Permissions    map[string]bool
}

// NewPrincipal resolves claims plus explicit grants into a principal.
// Capabilities are computed once here; handlers only check membership.
func NewPrincipal(claims *Claims, grants []Grant) Principal {
	return Principal{
		UserID:         claims.Subject,
		OrganizationID: claims.OrganizationID,
		Roles:          claims.Roles,
		Permissions:    EffectiveAccess(claims.Roles, grants),
	}
}

// HasPermission reports whether the principal can execute the action
// identified by key.
func (p Principal) HasPermission(key string) bool {
	return p.Permissions[key]
}

// IsAdmin reports whether the principal holds the elevated platform
// tier required for role changes and hard deletes.
func (p Principal) IsAdmin() bool {
	for _, role := range p.Roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}
