package enums

import "fmt"

// UserRole distinguishes customers from the staff hierarchy.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleStaff    UserRole = "staff"
	UserRoleManager  UserRole = "manager"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleStaff,
	UserRoleManager,
	UserRoleAdmin,
}

var userRoleRank = map[UserRole]int{
	UserRoleCustomer: 0,
	UserRoleStaff:    1,
	UserRoleManager:  2,
	UserRoleAdmin:    3,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may operate the terminal.
func (r UserRole) IsStaff() bool {
	return r.AtLeast(UserRoleStaff)
}

// AtLeast reports whether r is min or ranks above it.
func (r UserRole) AtLeast(min UserRole) bool {
	if !r.IsValid() || !min.IsValid() {
		return false
	}
	return userRoleRank[r] >= userRoleRank[min]
}

// ParseUserRole converts raw input into UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
