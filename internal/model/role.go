package model

// Role is an account's privilege tier.
//
// The tiers form an ordered hierarchy: user < admin < super-admin.
// Rather than comparing role strings everywhere, each role maps to a
// numeric rank so that gate checks read as `caller.Role.Rank() >= required`.
// The one exception is the super-admin gate, which is an exact match —
// see auth.RequireSuperAdmin.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// Rank returns the numeric privilege rank of the role.
// Unknown role strings rank below RoleUser so a corrupted or
// hand-crafted token can never pass a gate.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin || r == RoleSuperAdmin
}

// AtLeast reports whether r sits at or above the required tier.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank()
}
