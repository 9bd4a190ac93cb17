package classroom

// UserRole is the closed set of roles known to the system. It is a defined
// type rather than a string alias so adding a role is a compile-time change.
type UserRole string

const (
	// RoleDocente is a teacher: may create requests and view their own
	// requests and bookings.
	RoleDocente UserRole = "docente"
	// RoleSecretaria is staff: may approve/reject requests, create direct
	// bookings, and view everything.
	RoleSecretaria UserRole = "secretaria"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleDocente, RoleSecretaria:
		return true
	default:
		return false
	}
}

// CanManageRequests reports whether the role may approve or reject
// classroom requests and schedule rooms on behalf of teachers.
func (r UserRole) CanManageRequests() bool {
	return r == RoleSecretaria
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleDocente,
		RoleSecretaria,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}
