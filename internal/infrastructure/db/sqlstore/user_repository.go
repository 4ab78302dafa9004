package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/russross/meddler"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
)

const tableUsers = "users"

type userRow struct {
	ID          string   `meddler:"id"`
	Secret      string   `meddler:"secret,zeroisnull"`
	Name        string   `meddler:"name"`
	Email       string   `meddler:"email"`
	Image       string   `meddler:"image"`
	Permissions []string `meddler:"permissions,json"`
	Roles       []string `meddler:"roles,json"`
	CreatedAt   int64    `meddler:"created_at"`
	UpdatedAt   int64    `meddler:"updated_at"`
}

func (row *userRow) toDomain() *domain.User {
	u := &domain.User{
		ID:          row.ID,
		Secret:      row.Secret,
		Name:        row.Name,
		Email:       row.Email,
		Image:       row.Image,
		Permissions: make([]domain.Permission, 0, len(row.Permissions)),
		Roles:       make([]domain.Role, 0, len(row.Roles)),
		CreatedAt:   unixToTime(row.CreatedAt),
		UpdatedAt:   unixToTime(row.UpdatedAt),
	}
	for _, p := range row.Permissions {
		u.Permissions = append(u.Permissions, domain.Permission(p))
	}
	for _, r := range row.Roles {
		u.Roles = append(u.Roles, domain.Role(r))
	}
	return u
}

// UserRepository implements ports.UserRepository on a Store.
type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) FindBySecret(ctx context.Context, secret string) (*domain.User, error) {
	return r.queryOne(ctx, r.store, selectUserBySecret, secret)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.queryOne(ctx, r.store, selectUserByID, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryOne(ctx, r.store, selectUserByEmail, email)
}

func (r *UserRepository) queryOne(ctx context.Context, db meddler.DB, query string, arg any) (*domain.User, error) {
	row := new(userRow)
	if err := meddler.QueryRow(db, row, stmt(r.store.driver, query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// List returns users sorted by name, optionally filtered by a
// case-insensitive substring of name or email.
func (r *UserRepository) List(ctx context.Context, f ports.ListUsersFilter) ([]*domain.User, error) {
	var rows []*userRow
	var err error
	if f.Search == "" {
		err = meddler.QueryAll(r.store, &rows, stmt(r.store.driver, selectAllUsers))
	} else {
		pattern := containsPattern(f.Search)
		err = meddler.QueryAll(r.store, &rows, stmt(r.store.driver, searchUsers), pattern, pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

// UpdateByID writes the columns present in the patch and returns the row
// as stored afterwards.
func (r *UserRepository) UpdateByID(ctx context.Context, id string, p ports.UserPatch) (*domain.User, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = "+placeholder(r.store.driver, len(args)))
	}

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Image != nil {
		add("image", *p.Image)
	}
	if p.Permissions != nil {
		js, err := encodeJSON(*p.Permissions)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		add("permissions", js)
	}
	if p.Roles != nil {
		js, err := encodeJSON(*p.Roles)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		add("roles", js)
	}
	add("updated_at", time.Now().UTC().Unix())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		tableUsers, strings.Join(sets, ", "), placeholder(r.store.driver, len(args)))

	tx, err := r.store.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrUserNotFound
	}

	updated, err := r.queryOne(ctx, tx, selectUserByID, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	return updated, nil
}

// DeleteByID removes the user and returns the row as it was.
func (r *UserRepository) DeleteByID(ctx context.Context, id string) (*domain.User, error) {
	tx, err := r.store.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted, err := r.queryOne(ctx, tx, selectUserByID, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, stmt(r.store.driver, deleteUserByID), id); err != nil {
		return nil, fmt.Errorf("delete user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	return deleted, nil
}

// Insert stores a new user. Accounts are provisioned by the identity
// provider; this is used by tooling and tests.
func (r *UserRepository) Insert(_ context.Context, u *domain.User) error {
	now := time.Now().UTC().Unix()
	row := &userRow{
		ID:          u.ID,
		Secret:      u.Secret,
		Name:        u.Name,
		Email:       u.Email,
		Image:       u.Image,
		Permissions: toStrings(u.Permissions),
		Roles:       toStrings(u.Roles),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := meddler.Insert(r.store, tableUsers, row); err != nil {
		return fmt.Errorf("insert user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.store.PingContext(ctx)
}

func encodeJSON[T ~string](in []T) (string, error) {
	b, err := json.Marshal(toStrings(in))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// toStrings never returns nil, so empty sets are stored as "[]".
func toStrings[T ~string](in []T) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, string(v))
	}
	return out
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
