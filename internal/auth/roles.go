package auth

import "strings"

// Role is a member of the closed set of clinic staff roles.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleClinician     Role = "clinician"
	RoleFrontDesk     Role = "front-desk"
	RoleNurse         Role = "nurse"
)

var allRoles = []Role{RoleAdministrator, RoleClinician, RoleFrontDesk, RoleNurse}

// Roles lists every known role.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
