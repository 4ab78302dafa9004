package ports

import (
	"context"

	"github.com/socis/member-portal/internal/core/domain"
)

// ListUsersFilter narrows a user listing. Search is a case-insensitive
// substring matched against name and email; empty matches everyone.
type ListUsersFilter struct {
	Search string
}

// UserPatch carries a partial update. Nil fields are left untouched;
// Permissions and Roles replace the stored set wholesale.
type UserPatch struct {
	Name        *string
	Image       *string
	Permissions *[]domain.Permission
	Roles       *[]domain.Role
}

// IsEmpty reports whether the patch would change nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Image == nil && p.Permissions == nil && p.Roles == nil
}

// UserRepository defines persistence operations for member accounts.
// Every method except FindBySecret returns users with Secret cleared.
type UserRepository interface {
	FindBySecret(ctx context.Context, secret string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, error)
	UpdateByID(ctx context.Context, id string, patch UserPatch) (*domain.User, error)
	DeleteByID(ctx context.Context, id string) (*domain.User, error)
	Ping(ctx context.Context) error
}
