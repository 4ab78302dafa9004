package ports

import (
	"context"

	"github.com/socis/member-portal/internal/core/domain"
)

// ListUsersInput carries the optional roster search. AccessToken is
// optional for listing.
type ListUsersInput struct {
	AccessToken string
	Search      string
}

// UserPatchInput is the user-supplied part of an update. ID is required;
// nil fields are not changed. Image is a base64 payload (optionally a data
// URL), an empty string, or the default image sentinel.
type UserPatchInput struct {
	ID          string
	Name        *string
	Permissions *[]domain.Permission
	Roles       *[]domain.Role
	Image       *string
}

// UpdateUserInput is the updateUser request.
type UpdateUserInput struct {
	AccessToken string
	User        UserPatchInput
}

// DeleteUserInput is the deleteUser request.
type DeleteUserInput struct {
	AccessToken string
	ID          string
}

// UpdateProfileImageInput is the updateProfileImage request.
type UpdateProfileImageInput struct {
	AccessToken string
	Image       string
}

// UserService defines the account management use cases.
type UserService interface {
	ListUsers(ctx context.Context, in ListUsersInput) ([]*domain.User, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, in DeleteUserInput) (string, error)
	GetProfile(ctx context.Context, accessToken string) (*domain.User, error)
	UpdateProfileImage(ctx context.Context, in UpdateProfileImageInput) (*domain.User, error)
}

// AvatarService turns inbound image payloads into stored blobs.
type AvatarService interface {
	// Upload stores payload and returns its reference without touching any
	// previous avatar.
	Upload(ctx context.Context, payload string) (string, error)
	// ReplaceImage uploads payload and then releases existingImageRef.
	// Callers that must commit a row between the two steps use Upload and
	// Release directly instead.
	ReplaceImage(ctx context.Context, existingImageRef, payload string) (string, error)
	Release(ctx context.Context, ref string) error
	IsDefault(ref string) bool
}
