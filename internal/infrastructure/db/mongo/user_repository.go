package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
)

const collectionUsers = "users"

// withoutCredentials is applied to every read that can reach a client.
var withoutCredentials = bson.M{"secret": 0, "password": 0}

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID          string   `bson:"_id"`
	Secret      string   `bson:"secret,omitempty"`
	Name        string   `bson:"name"`
	Email       string   `bson:"email"`
	Image       string   `bson:"image"`
	Permissions []string `bson:"permissions"`
	Roles       []string `bson:"roles"`
	CreatedAt   int64    `bson:"created_at"`
	UpdatedAt   int64    `bson:"updated_at"`
}

func (m *mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:          m.ID,
		Secret:      m.Secret,
		Name:        m.Name,
		Email:       m.Email,
		Image:       m.Image,
		Permissions: make([]domain.Permission, 0, len(m.Permissions)),
		Roles:       make([]domain.Role, 0, len(m.Roles)),
		CreatedAt:   unixToTime(m.CreatedAt),
		UpdatedAt:   unixToTime(m.UpdatedAt),
	}
	for _, p := range m.Permissions {
		u.Permissions = append(u.Permissions, domain.Permission(p))
	}
	for _, r := range m.Roles {
		u.Roles = append(u.Roles, domain.Role(r))
	}
	return u
}

// FindBySecret resolves an access token. It is the only read that loads the
// secret field.
func (r *UserRepository) FindBySecret(ctx context.Context, secret string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"secret": secret}, nil)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, withoutCredentials)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, withoutCredentials)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, projection bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	var mu mongoUser
	if err := r.col.FindOne(ctx, filter, opts).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// List returns all users sorted by name, never loading credentials.
func (r *UserRepository) List(ctx context.Context, f ports.ListUsersFilter) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}

	opts := options.Find().
		SetProjection(withoutCredentials).
		SetSort(bson.D{{Key: "name", Value: 1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	users := make([]*domain.User, 0)
	for cur.Next(ctx) {
		var mu mongoUser
		if err := cur.Decode(&mu); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, mu.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateByID sets only the fields present in the patch and returns the
// updated document.
func (r *UserRepository) UpdateByID(ctx context.Context, id string, p ports.UserPatch) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := patchSet(p, time.Now().UTC().Unix())

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutCredentials)

	var mu mongoUser
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	return mu.toDomain(), nil
}

// patchSet builds the $set document for p. Absent fields are left out so
// the stored values survive.
func patchSet(p ports.UserPatch, now int64) bson.M {
	set := bson.M{"updated_at": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Image != nil {
		set["image"] = *p.Image
	}
	if p.Permissions != nil {
		set["permissions"] = toStrings(*p.Permissions)
	}
	if p.Roles != nil {
		set["roles"] = toStrings(*p.Roles)
	}
	return set
}

// DeleteByID removes the user and returns the removed document.
func (r *UserRepository) DeleteByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndDelete().SetProjection(withoutCredentials)

	var mu mongoUser
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}, opts).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	return mu.toDomain(), nil
}

// Insert creates a user document. Accounts are provisioned by the identity
// provider; this is used by tooling and seeding.
func (r *UserRepository) Insert(ctx context.Context, u *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Unix()
	doc := mongoUser{
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
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user: %w: duplicate id, email or secret", domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert user: %w: %w", domain.ErrStoreWriteFailed, err)
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.col.Database().Client().Ping(ctx, nil)
}

// EnsureIndexes creates the unique lookups on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "secret", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

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
