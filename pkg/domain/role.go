package domain

import dErrors "sangha/pkg/domain-errors"

// Role is one of the ordered senapoti leadership levels.
// Invariant: the value must be one of the four catalog roles.
//
// Usage: construct via ParseRole at trust boundaries to enforce the catalog;
// direct casting bypasses validation.
type Role string

// The leadership ladder, most senior first.
const (
	RoleMalaSenapoti       Role = "MALA_SENAPOTI"
	RoleMahaChakraSenapoti Role = "MAHA_CHAKRA_SENAPOTI"
	RoleChakraSenapoti     Role = "CHAKRA_SENAPOTI"
	RoleUpaChakraSenapoti  Role = "UPA_CHAKRA_SENAPOTI"
)

// roleLevels is the single source of truth for role ordering.
// Lower level = more senior.
var roleLevels = map[Role]int{
	RoleMalaSenapoti:       1,
	RoleMahaChakraSenapoti: 2,
	RoleChakraSenapoti:     3,
	RoleUpaChakraSenapoti:  4,
}

// ScopeKind is the geographic granularity a role's seat is scoped to.
type ScopeKind string

const (
	ScopeState     ScopeKind = "state"
	ScopeDistrict  ScopeKind = "district"
	ScopeNamahatta ScopeKind = "namahatta"
)

// roleScopes binds each role to its seat granularity. Slot uniqueness is
// enforced per (role, scope value); see the hierarchy store.
var roleScopes = map[Role]ScopeKind{
	RoleMalaSenapoti:       ScopeState,
	RoleMahaChakraSenapoti: ScopeDistrict,
	RoleChakraSenapoti:     ScopeDistrict,
	RoleUpaChakraSenapoti:  ScopeNamahatta,
}

// RolesBySeniority returns the ladder most senior first.
func RolesBySeniority() []Role {
	return []Role{RoleMalaSenapoti, RoleMahaChakraSenapoti, RoleChakraSenapoti, RoleUpaChakraSenapoti}
}

// ParseRole constructs a Role from external input.
// Errors: returns CodeInvalidInput when the value is empty or not in the catalog.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	return r, nil
}

// IsValid checks if the role is one of the four catalog roles.
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the role's position on the ladder (1 = most senior).
// Unknown roles report level 0.
func (r Role) Level() int {
	return roleLevels[r]
}

// IsSuperiorTo reports whether r is strictly senior to other.
// False when either role is unknown or the roles are equal.
func (r Role) IsSuperiorTo(other Role) bool {
	rl, ok := roleLevels[r]
	if !ok {
		return false
	}
	ol, ok := roleLevels[other]
	if !ok {
		return false
	}
	return rl < ol
}

// IsTop reports whether r is the topmost role, the only level whose holders
// report to nobody.
func (r Role) IsTop() bool {
	return r == RoleMalaSenapoti
}

// Scope returns the seat granularity for the role.
func (r Role) Scope() ScopeKind {
	return roleScopes[r]
}

// String returns the wire representation of the role.
func (r Role) String() string {
	return string(r)
}
