package rbac

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDivision    Role = "division"
	RoleInstitution Role = "institution"
	RoleSite        Role = "site"
)

// Principal is an authenticated identity. The role tag decides which of the
// identity fields are populated; a principal never carries another role's
// attributes.
type Principal struct {
	Role            Role   `json:"role"`
	Email           string `json:"email"`
	AdminID         string `json:"adminId,omitempty"`
	DivisionID      string `json:"divisionId,omitempty"`
	DivisionName    string `json:"divisionName,omitempty"`
	InstitutionID   string `json:"institutionId,omitempty"`
	InstitutionName string `json:"institutionName,omitempty"`
}

func (p Principal) IsZero() bool {
	return p.Role == ""
}

// Allowed reports whether the principal's role is in the required set.
// An empty set means any authenticated principal.
func Allowed(p Principal, roles ...Role) bool {
	if p.IsZero() {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// HomePath is where a principal lands after login or /home dispatch.
func HomePath(role Role) string {
	switch role {
	case RoleAdmin:
		return "/admin"
	case RoleDivision:
		return "/division"
	case RoleInstitution, RoleSite:
		return "/institution"
	default:
		return "/login"
	}
}

func Normalize(role string) (Role, bool) {
	switch Role(role) {
	case RoleAdmin, RoleDivision, RoleInstitution, RoleSite:
		return Role(role), true
	default:
		return "", false
	}
}
