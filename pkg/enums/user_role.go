package enums

import "fmt"

// UserRole represents an operator's permission level.
type UserRole string

const (
	UserRoleOwner      UserRole = "owner"
	UserRoleAdmin      UserRole = "admin"
	UserRoleManager    UserRole = "manager"
	UserRoleProduction UserRole = "production"
	UserRoleSales      UserRole = "sales"
	UserRoleStores     UserRole = "stores"
	UserRoleViewer     UserRole = "viewer"
)

var validUserRoles = []UserRole{
	UserRoleOwner,
	UserRoleAdmin,
	UserRoleManager,
	UserRoleProduction,
	UserRoleSales,
	UserRoleStores,
	UserRoleViewer,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// BypassesRouteChecks reports whether the role skips route permission lookups.
func (u UserRole) BypassesRouteChecks() bool {
	return u == UserRoleAdmin || u == UserRoleOwner
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
