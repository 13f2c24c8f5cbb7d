package domain

// Role constants define the allowed principal roles.
const (
	RoleStandard = "standard"
	RolePremium  = "premium"
	RoleAdmin    = "admin"
	RoleGuest    = "guest"
)

// ValidRoles returns the set of roles a user account may hold.
func ValidRoles() []string {
	return []string{RoleStandard, RolePremium, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}
