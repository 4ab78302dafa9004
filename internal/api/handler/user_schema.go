package handler

import (
	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
)

type listUsersRequest struct {
	AccessToken string `json:"accessToken"`
	Search      string `json:"search" validate:"max=100"`
}

type userPatchRequest struct {
	ID          string    `json:"id"                    validate:"required"`
	Name        *string   `json:"name,omitempty"`
	Permissions *[]string `json:"permissions,omitempty" validate:"omitempty,dive,oneof=ADMIN CREATE_EVENT EDIT_EVENT DELETE_EVENT"`
	Roles       *[]string `json:"roles,omitempty"       validate:"omitempty,dive,oneof=MEMBER PRESIDENT VICE_PRESIDENT PROJECT_MANAGER SERM_APPROVED TREASURER"`
	// Image is a base64 payload or data URL; an empty string or the default
	// image path resets the avatar.
	Image *string `json:"image,omitempty"`
}

type updateUserRequest struct {
	AccessToken string           `json:"accessToken"`
	User        userPatchRequest `json:"user"`
}

type deleteUserRequest struct {
	AccessToken string `json:"accessToken"`
	ID          string `json:"id" validate:"required"`
}

type getProfileRequest struct {
	AccessToken string `json:"accessToken"`
}

type updateProfileImageRequest struct {
	AccessToken string `json:"accessToken"`
	Image       string `json:"image"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type usersResponse struct {
	Users []*domain.User `json:"users"`
}

type deletedUser struct {
	ID string `json:"id"`
}

type deleteUserResponse struct {
	User deletedUser `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toPatchInput(req userPatchRequest) ports.UserPatchInput {
	in := ports.UserPatchInput{
		ID:    req.ID,
		Name:  req.Name,
		Image: req.Image,
	}
	if req.Permissions != nil {
		perms := make([]domain.Permission, 0, len(*req.Permissions))
		for _, p := range *req.Permissions {
			perms = append(perms, domain.Permission(p))
		}
		in.Permissions = &perms
	}
	if req.Roles != nil {
		roles := make([]domain.Role, 0, len(*req.Roles))
		for _, r := range *req.Roles {
			roles = append(roles, domain.Role(r))
		}
		in.Roles = &roles
	}
	return in
}
