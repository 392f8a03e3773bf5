package enums

// UserRole scopes warehouse platform permissions.
type UserRole string

const (
	UserRoleAdmin          UserRole = "ADMIN"
	UserRoleManager        UserRole = "MANAGER"
	UserRoleAdministrative UserRole = "ADMINISTRATIVE"
	UserRoleOperator       UserRole = "OPERATOR"
)

// IsValid checks whether the given role matches the canonical enum.
func (u UserRole) IsValid() bool {
	switch u {
	case UserRoleAdmin, UserRoleManager, UserRoleAdministrative, UserRoleOperator:
		return true
	}
	return false
}
