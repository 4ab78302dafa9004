package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultImage is the image reference of a member without a custom avatar.
// It is never uploaded to or deleted from blob storage.
const DefaultImage = "/images/default-pfp.png"

// Name length bounds, counted in runes after trimming.
const (
	MinNameLength = 1
	MaxNameLength = 50
)

// User models a member account. Rows are provisioned by the identity
// provider; this service reads, patches and deletes them.
type User struct {
	ID          string       `json:"id"`
	Secret      string       `json:"-"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Image       string       `json:"image"`
	Permissions []Permission `json:"permissions"`
	Roles       []Role       `json:"roles"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the ADMIN capability.
func (u *User) IsAdmin() bool {
	return HasPermissions(u, PermissionAdmin)
}

// Redacted returns a copy of u that is safe to hand to callers: the secret
// is cleared and the slices are not shared with the original.
func (u *User) Redacted() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Secret = ""
	// Empty sets stay non-nil so they encode as [] rather than null.
	c.Permissions = make([]Permission, len(u.Permissions))
	copy(c.Permissions, u.Permissions)
	c.Roles = make([]Role, len(u.Roles))
	copy(c.Roles, u.Roles)
	return &c
}

// ValidateName trims name and checks it against the display-name bounds.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	if n < MinNameLength || n > MaxNameLength {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

// IsDefaultImage reports whether ref means "no custom avatar".
func IsDefaultImage(ref, defaultImage string) bool {
	return ref == "" || ref == defaultImage
}
