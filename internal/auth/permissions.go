package auth

// Capability keys form a closed set resolved once per request into a
// Principal; handlers check membership, never raw strings from input.
const (
	PermViewPayroll    = "payroll.run.view"
	PermPreparePayroll = "payroll.run.prepare"
	PermManageUsers    = "users.manage"
	PermManageHRSync   = "hrsync.manage"
)

// Permission is a fine-grained capability.
type Permission struct {
	Key         string
	Description string
}

// BuiltinPermissions is the capability catalog.
var BuiltinPermissions = []Permission{
	{Key: PermViewPayroll, Description: "View pay runs and pay items"},
	{Key: PermPreparePayroll, Description: "Create and mutate pay runs and pay items"},
	{Key: PermManageUsers, Description: "Administer user profiles and roles"},
	{Key: PermManageHRSync, Description: "Operate the external HR synchronization"},
}

// Role tiers. Admin is the elevated platform tier required for role
// changes and hard deletes.
const (
	RoleAdmin          = "admin"
	RolePayrollManager = "payroll_manager"
	RoleHRManager      = "hr_manager"
	RoleViewer         = "viewer"
)

// rolePermissions are the role-derived capability defaults. Explicit
// grants are layered on top of these (see grants.go).
var rolePermissions = map[string][]string{
	RoleAdmin:          {PermViewPayroll, PermPreparePayroll, PermManageUsers, PermManageHRSync},
	RolePayrollManager: {PermViewPayroll, PermPreparePayroll},
	RoleHRManager:      {PermViewPayroll, PermManageHRSync},
	RoleViewer:         {PermViewPayroll},
}

// DefaultPermissions returns the capability defaults for a role set.
func DefaultPermissions(roles []string) map[string]bool {
	out := make(map[string]bool)
	for _, role := range roles {
		for _, perm := range rolePermissions[role] {
			out[perm] = true
		}
	}
	return out
}

// KnownRole reports whether the role name is part of the catalog.
func KnownRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}
