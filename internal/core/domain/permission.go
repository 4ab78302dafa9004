package domain

import (
	"fmt"
	"slices"
)

// Permission is a capability token granted to a user.
type Permission string

const (
	PermissionAdmin       Permission = "ADMIN"
	PermissionCreateEvent Permission = "CREATE_EVENT"
	PermissionEditEvent   Permission = "EDIT_EVENT"
	PermissionDeleteEvent Permission = "DELETE_EVENT"
)

// Permissions lists every known capability in display order.
var Permissions = []Permission{
	PermissionAdmin,
	PermissionCreateEvent,
	PermissionEditEvent,
	PermissionDeleteEvent,
}

// Role is an organizational tag. Roles carry no authorization meaning.
type Role string

const (
	RoleMember         Role = "MEMBER"
	RolePresident      Role = "PRESIDENT"
	RoleVicePresident  Role = "VICE_PRESIDENT"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleSermApproved   Role = "SERM_APPROVED"
	RoleTreasurer      Role = "TREASURER"
)

// Roles lists every known role in display order.
var Roles = []Role{
	RoleMember,
	RolePresident,
	RoleVicePresident,
	RoleProjectManager,
	RoleSermApproved,
	RoleTreasurer,
}

// IsValid reports whether p is a known capability.
func (p Permission) IsValid() bool {
	return slices.Contains(Permissions, p)
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return slices.Contains(Roles, r)
}

// HasPermissions reports whether user holds every capability in required.
// An empty requirement is satisfied by anyone, including a nil user.
func HasPermissions(user *User, required ...Permission) bool {
	if len(required) == 0 {
		return true
	}
	if user == nil {
		return false
	}
	for _, p := range required {
		if !slices.Contains(user.Permissions, p) {
			return false
		}
	}
	return true
}

// NormalizePermissions validates in against the known capabilities and
// returns it de-duplicated, keeping first-seen order.
func NormalizePermissions(in []Permission) ([]Permission, error) {
	out := make([]Permission, 0, len(in))
	for _, p := range in {
		if !p.IsValid() {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, p)
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// NormalizeRoles validates in against the known roles and returns it
// de-duplicated, keeping first-seen order.
func NormalizeRoles(in []Role) ([]Role, error) {
	out := make([]Role, 0, len(in))
	for _, r := range in {
		if !r.IsValid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, r)
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// SamePermissions reports whether a and b hold the same capabilities,
// ignoring order and duplicates.
func SamePermissions(a, b []Permission) bool {
	return sameSet(a, b)
}

// SameRoles reports whether a and b hold the same roles, ignoring order and
// duplicates.
func SameRoles(a, b []Role) bool {
	return sameSet(a, b)
}

func sameSet[T comparable](a, b []T) bool {
	for _, x := range a {
		if !slices.Contains(b, x) {
			return false
		}
	}
	for _, x := range b {
		if !slices.Contains(a, x) {
			return false
		}
	}
	return true
}
