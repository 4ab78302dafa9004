package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
	"github.com/socis/member-portal/internal/pkg/metrics"
)

// IdentityCache abstracts the access-token lookup cache (Redis).
type IdentityCache interface {
	Get(ctx context.Context, secret string) (*domain.User, bool, error)
	Set(ctx context.Context, secret string, user *domain.User) error
	Invalidate(ctx context.Context, userID string) error
}

type userService struct {
	repo    ports.UserRepository
	avatars ports.AvatarService
	cache   IdentityCache
	log     zerolog.Logger
}

// NewUserService returns a UserService implementation. cache may be nil.
func NewUserService(
	repo ports.UserRepository,
	avatars ports.AvatarService,
	cache IdentityCache,
	log zerolog.Logger,
) ports.UserService {
	return &userService{
		repo:    repo,
		avatars: avatars,
		cache:   cache,
		log:     log,
	}
}

// ListUsers returns the roster without credentials. The access token is
// optional; when one is supplied it must resolve to a user.
func (s *userService) ListUsers(ctx context.Context, in ports.ListUsersInput) ([]*domain.User, error) {
	if in.AccessToken != "" {
		if _, err := s.resolveCaller(ctx, "listUsers", in.AccessToken); err != nil {
			return nil, err
		}
	}

	users, err := s.repo.List(ctx, ports.ListUsersFilter{Search: strings.TrimSpace(in.Search)})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i, u := range users {
		users[i] = u.Redacted()
	}
	return users, nil
}

// GetProfile returns the caller's own record.
func (s *userService) GetProfile(ctx context.Context, accessToken string) (*domain.User, error) {
	caller, err := s.resolveCaller(ctx, "getProfile", accessToken)
	if err != nil {
		return nil, err
	}

	// The cache may lag behind the store; read the row itself.
	u, err := s.repo.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return u.Redacted(), nil
}

// UpdateProfileImage replaces the caller's own avatar.
func (s *userService) UpdateProfileImage(ctx context.Context, in ports.UpdateProfileImageInput) (*domain.User, error) {
	caller, err := s.resolveCaller(ctx, "updateProfileImage", in.AccessToken)
	if err != nil {
		return nil, err
	}

	image := in.Image
	return s.update(ctx, caller, ports.UserPatchInput{ID: caller.ID, Image: &image})
}

// UpdateUser applies a partial update on behalf of the caller.
func (s *userService) UpdateUser(ctx context.Context, in ports.UpdateUserInput) (*domain.User, error) {
	caller, err := s.resolveCaller(ctx, "updateUser", in.AccessToken)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, caller, in.User)
}

func (s *userService) update(ctx context.Context, caller *domain.User, in ports.UserPatchInput) (*domain.User, error) {
	if in.ID == "" {
		return nil, fmt.Errorf("update user: %w: id is required", domain.ErrInvalidInput)
	}

	// 1. Admin or self.
	isAdmin := caller.IsAdmin()
	isSelf := caller.ID == in.ID
	if !isAdmin && !isSelf {
		s.deny("updateUser", "forbidden", caller)
		return nil, fmt.Errorf("update user: %w", domain.ErrForbidden)
	}

	// 2. Current state of the target.
	target, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpdateUserFailed, err)
	}

	// 3. Validate and build the patch. Permissions and roles are full sets.
	var patch ports.UserPatch
	if in.Name != nil {
		name, err := domain.ValidateName(*in.Name)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		patch.Name = &name
	}
	if in.Permissions != nil {
		perms, err := domain.NormalizePermissions(*in.Permissions)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if !isAdmin && !domain.SamePermissions(perms, target.Permissions) {
			s.deny("updateUser", "forbidden", caller)
			return nil, fmt.Errorf("update user: %w: only administrators can change permissions", domain.ErrForbidden)
		}
		if isSelf && domain.HasPermissions(target, domain.PermissionAdmin) && !domain.HasPermissions(&domain.User{Permissions: perms}, domain.PermissionAdmin) {
			s.deny("updateUser", "self_demotion", caller)
			return nil, fmt.Errorf("update user: %w", domain.ErrAdminSelfDemotion)
		}
		patch.Permissions = &perms
	}
	if in.Roles != nil {
		roles, err := domain.NormalizeRoles(*in.Roles)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if !isAdmin && !domain.SameRoles(roles, target.Roles) {
			s.deny("updateUser", "forbidden", caller)
			return nil, fmt.Errorf("update user: %w: only administrators can change roles", domain.ErrForbidden)
		}
		patch.Roles = &roles
	}

	// 4. Avatar. A failure here aborts before the row is touched. The old
	// blob is only released once the row no longer points at it.
	uploaded := ""
	if in.Image != nil {
		ref, err := s.avatars.Upload(ctx, *in.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrImageUploadFailed, err)
		}
		if !s.avatars.IsDefault(ref) {
			uploaded = ref
		}
		patch.Image = &ref
	}

	if patch.IsEmpty() {
		return target.Redacted(), nil
	}

	// 5. Persist.
	updated, err := s.repo.UpdateByID(ctx, in.ID, patch)
	if err != nil {
		if uploaded != "" {
			if relErr := s.avatars.Release(ctx, uploaded); relErr != nil {
				s.log.Warn().Err(relErr).Str("ref", uploaded).Msg("failed to release avatar after store error")
			}
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpdateUserFailed, err)
	}

	// 6. Best-effort removal of the superseded avatar.
	if patch.Image != nil && *patch.Image != target.Image {
		if err := s.avatars.Release(ctx, target.Image); err != nil {
			s.log.Warn().Err(err).Str("user_id", target.ID).Msg("failed to delete previous avatar")
		}
	}

	s.invalidate(ctx, target.ID)

	scope := "admin"
	if isSelf {
		scope = "self"
	}
	metrics.UsersUpdatedTotal.WithLabelValues(scope).Inc()

	s.log.Info().
		Str("caller_id", caller.ID).
		Str("user_id", target.ID).
		Str("scope", scope).
		Msg("user updated")

	return updated.Redacted(), nil
}

// DeleteUser removes a user row and then its avatar. Administrators only.
func (s *userService) DeleteUser(ctx context.Context, in ports.DeleteUserInput) (string, error) {
	caller, err := s.resolveCaller(ctx, "deleteUser", in.AccessToken)
	if err != nil {
		return "", err
	}
	if !caller.IsAdmin() {
		s.deny("deleteUser", "forbidden", caller)
		return "", fmt.Errorf("delete user: %w", domain.ErrForbidden)
	}
	if in.ID == "" {
		return "", fmt.Errorf("delete user: %w: id is required", domain.ErrInvalidInput)
	}

	deleted, err := s.repo.DeleteByID(ctx, in.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrDeleteUserFailed, err)
	}
	metrics.UsersDeletedTotal.Inc()
	s.invalidate(ctx, deleted.ID)

	s.log.Info().Str("caller_id", caller.ID).Str("user_id", deleted.ID).Msg("user deleted")

	// The row is gone either way; a failed blob delete is reported, not undone.
	if err := s.avatars.Release(ctx, deleted.Image); err != nil {
		s.log.Error().Err(err).Str("user_id", deleted.ID).Str("ref", deleted.Image).Msg("user deleted but avatar was not")
		return "", fmt.Errorf("%w: %w", domain.ErrDeleteUserImageFailed, err)
	}

	return deleted.ID, nil
}

// resolveCaller maps an access token to its user, going through the identity
// cache when one is configured.
func (s *userService) resolveCaller(ctx context.Context, op, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		s.deny(op, "unauthorized", nil)
		return nil, fmt.Errorf("%s: %w", op, domain.ErrUnauthorized)
	}

	if s.cache != nil {
		u, ok, err := s.cache.Get(ctx, token)
		switch {
		case err != nil:
			metrics.IdentityCacheTotal.WithLabelValues("error").Inc()
			s.log.Warn().Err(err).Msg("identity cache lookup failed, falling back to store")
		case ok:
			metrics.IdentityCacheTotal.WithLabelValues("hit").Inc()
			return u, nil
		default:
			metrics.IdentityCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	u, err := s.repo.FindBySecret(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Error().Err(err).Str("operation", op).Msg("caller lookup failed")
		}
		s.deny(op, "unauthorized", nil)
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrUnauthorized, err)
	}

	caller := u.Redacted()
	if s.cache != nil {
		if err := s.cache.Set(ctx, token, caller); err != nil {
			s.log.Warn().Err(err).Str("user_id", caller.ID).Msg("failed to cache identity")
		}
	}
	return caller, nil
}

func (s *userService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate cached identity")
	}
}

func (s *userService) deny(op, reason string, caller *domain.User) {
	metrics.AuthzDeniedTotal.WithLabelValues(op, reason).Inc()
	ev := s.log.Info().Str("operation", op).Str("reason", reason)
	if caller != nil {
		ev = ev.Str("caller_id", caller.ID)
	}
	ev.Msg("request denied")
}
