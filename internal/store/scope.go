package store

import "taxportal/api/internal/rbac"

// Scope is the ownership subtree a principal may touch. The store applies
// it to every list query AND every single-record fetch/mutate, so no route
// can skip the check.
type Scope struct {
	Role          rbac.Role
	DivisionID    string
	InstitutionID string
}

func ScopeFor(p rbac.Principal) Scope {
	return Scope{
		Role:          p.Role,
		DivisionID:    p.DivisionID,
		InstitutionID: p.InstitutionID,
	}
}

// Unrestricted reports whether the scope spans every tenant.
func (s Scope) Unrestricted() bool {
	return s.Role == rbac.RoleAdmin
}

// coversInstitution decides single-record access for a row owned by the
// given institution under the given division.
func (s Scope) coversInstitution(institutionID, divisionID string) bool {
	switch s.Role {
	case rbac.RoleAdmin:
		return true
	case rbac.RoleDivision:
		return s.DivisionID == divisionID
	case rbac.RoleInstitution, rbac.RoleSite:
		return s.InstitutionID == institutionID
	default:
		return false
	}
}
