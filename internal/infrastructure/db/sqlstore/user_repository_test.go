package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
)

func newTestRepo(t *testing.T) *UserRepository {
	t.Helper()
	s, err := NewTest()
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewUserRepository(s)
}

func seed(t *testing.T, repo *UserRepository) {
	t.Helper()
	users := []*domain.User{
		{
			ID:          "u-ada",
			Secret:      "ada-secret",
			Name:        "Ada Lovelace",
			Email:       "ada@example.com",
			Image:       domain.DefaultImage,
			Permissions: []domain.Permission{domain.PermissionAdmin},
			Roles:       []domain.Role{domain.RolePresident},
		},
		{
			ID:     "u-bob",
			Secret: "bob-secret",
			Name:   "Bob_Builder",
			Email:  "bob@example.com",
			Image:  "https://cdn.example.com/avatars/bob.png",
		},
	}
	for _, u := range users {
		assert.Nil(t, repo.Insert(context.Background(), u))
	}
}

func TestUserCRUD(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo)
	ctx := context.Background()

	u, err := repo.FindBySecret(ctx, "ada-secret")
	assert.Nil(t, err)
	assert.Equal(t, "u-ada", u.ID)
	assert.Equal(t, "ada-secret", u.Secret)
	assert.Equal(t, []domain.Permission{domain.PermissionAdmin}, u.Permissions)
	assert.Equal(t, []domain.Role{domain.RolePresident}, u.Roles)
	assert.False(t, u.CreatedAt.IsZero())

	_, err = repo.FindBySecret(ctx, "noSuchSecret")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	byID, err := repo.FindByID(ctx, "u-bob")
	assert.Nil(t, err)
	assert.Equal(t, "Bob_Builder", byID.Name)
	assert.Empty(t, byID.Secret)
	assert.Empty(t, byID.Permissions)

	byEmail, err := repo.FindByEmail(ctx, "ada@example.com")
	assert.Nil(t, err)
	assert.Equal(t, "u-ada", byEmail.ID)
	assert.Empty(t, byEmail.Secret)

	deleted, err := repo.DeleteByID(ctx, "u-bob")
	assert.Nil(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/bob.png", deleted.Image)
	assert.Empty(t, deleted.Secret)

	users, err := repo.List(ctx, ports.ListUsersFilter{})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(users))

	_, err = repo.DeleteByID(ctx, "u-bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListNeverReturnsSecret(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo)

	users, err := repo.List(context.Background(), ports.ListUsersFilter{})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(users))
	for _, u := range users {
		assert.Empty(t, u.Secret)
	}
	assert.Equal(t, "Ada Lovelace", users[0].Name)
}

func TestListSearch(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo)
	ctx := context.Background()

	users, err := repo.List(ctx, ports.ListUsersFilter{Search: "LOVE"})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(users))
	assert.Equal(t, "u-ada", users[0].ID)

	users, err = repo.List(ctx, ports.ListUsersFilter{Search: "bob@"})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(users))

	// Wildcards in the search are literal.
	users, err = repo.List(ctx, ports.ListUsersFilter{Search: "%"})
	assert.Nil(t, err)
	assert.Equal(t, 0, len(users))

	users, err = repo.List(ctx, ports.ListUsersFilter{Search: "_builder"})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(users))
}

func TestUpdateByIDPartial(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo)
	ctx := context.Background()

	name := "Countess Ada"
	updated, err := repo.UpdateByID(ctx, "u-ada", ports.UserPatch{Name: &name})
	assert.Nil(t, err)
	assert.Equal(t, "Countess Ada", updated.Name)
	assert.Equal(t, domain.DefaultImage, updated.Image)
	assert.Equal(t, []domain.Permission{domain.PermissionAdmin}, updated.Permissions)
	assert.Empty(t, updated.Secret)

	roles := []domain.Role{domain.RoleTreasurer, domain.RoleMember}
	perms := []domain.Permission{}
	updated, err = repo.UpdateByID(ctx, "u-ada", ports.UserPatch{Roles: &roles, Permissions: &perms})
	assert.Nil(t, err)
	assert.Equal(t, roles, updated.Roles)
	assert.Empty(t, updated.Permissions)
	assert.Equal(t, "Countess Ada", updated.Name)

	// Secret is untouched by updates.
	u, err := repo.FindBySecret(ctx, "ada-secret")
	assert.Nil(t, err)
	assert.Equal(t, "u-ada", u.ID)
}

func TestUpdateByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)
	name := "Nobody"

	_, err := repo.UpdateByID(context.Background(), "ghost", ports.UserPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestInsertDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo)

	err := repo.Insert(context.Background(), &domain.User{ID: "u-other", Email: "ada@example.com"})
	assert.ErrorIs(t, err, domain.ErrStoreWriteFailed)
}

func TestUsersWithoutSecretDoNotCollide(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assert.Nil(t, repo.Insert(ctx, &domain.User{ID: "a", Email: "a@example.com"}))
	assert.Nil(t, repo.Insert(ctx, &domain.User{ID: "b", Email: "b@example.com"}))
}

func TestMigrateIsIdempotent(t *testing.T) {
	s, err := NewTest()
	assert.Nil(t, err)
	defer s.Close()

	assert.Nil(t, Migrate(s.Driver(), s.DB))

	var n int
	assert.Nil(t, s.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&n))
	assert.Equal(t, len(migrations[DriverSQLite]), n)
}
