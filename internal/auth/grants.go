package auth

// Effect is an explicit grant decision.
type Effect string

const (
	Allow Effect = "ALLOW"
	Deny  Effect = "DENY"
)

// Grant is a per-user permission override layered on top of the
// role-derived defaults.
type Grant struct {
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
	Effect     Effect `json:"effect"`
}

// EffectiveAccess computes the user's effective capability set: start
// from role defaults, then apply explicit grants. Among grants for the
// same permission, DENY wins over ALLOW.
func EffectiveAccess(roles []string, grants []Grant) map[string]bool {
	access := DefaultPermissions(roles)

	allowed := make(map[string]bool)
	denied := make(map[string]bool)
	for _, g := range grants {
		switch g.Effect {
		case Allow:
			allowed[g.Permission] = true
		case Deny:
			denied[g.Permission] = true
		}
	}
	for perm := range allowed {
		access[perm] = true
	}
	for perm := range denied {
		access[perm] = false
	}
	return access
}
