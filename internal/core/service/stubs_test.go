package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID       map[string]*domain.User
	findErr    error // if set, FindBySecret returns this error
	updateErr  error // if set, UpdateByID returns this error
	deleteErr  error // if set, DeleteByID returns this error
	secretHits int   // number of FindBySecret calls
	updates    []ports.UserPatch
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		clone := *u
		r.byID[u.ID] = &clone
	}
	return r
}

func (r *stubUserRepo) FindBySecret(_ context.Context, secret string) (*domain.User, error) {
	r.secretHits++
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Secret == secret {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Redacted(), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u.Redacted(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// List applies the same search the real repositories use.
func (r *stubUserRepo) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, error) {
	var out []*domain.User
	q := strings.ToLower(f.Search)
	for _, u := range r.byID {
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		// Return the raw row so the service's redaction is what gets tested.
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubUserRepo) UpdateByID(_ context.Context, id string, p ports.UserPatch) (*domain.User, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	r.updates = append(r.updates, p)
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Image != nil {
		u.Image = *p.Image
	}
	if p.Permissions != nil {
		u.Permissions = append([]domain.Permission(nil), (*p.Permissions)...)
	}
	if p.Roles != nil {
		u.Roles = append([]domain.Role(nil), (*p.Roles)...)
	}
	u.UpdatedAt = time.Now().UTC()
	return u.Redacted(), nil
}

func (r *stubUserRepo) DeleteByID(_ context.Context, id string) (*domain.User, error) {
	if r.deleteErr != nil {
		return nil, r.deleteErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return u.Redacted(), nil
}

func (r *stubUserRepo) Ping(context.Context) error { return nil }

// ---------------------------------------------------------------------------
// Blob store stub: records every call in order.
// ---------------------------------------------------------------------------

const stubBlobBase = "https://blobs.test/avatars/"

type stubBlobStore struct {
	objects   map[string][]byte
	putErr    error
	deleteErr error
	calls     []string // "put:<key>" / "delete:<ref>"
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{objects: make(map[string][]byte)}
}

func (b *stubBlobStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	b.calls = append(b.calls, "put:"+key)
	if b.putErr != nil {
		return "", b.putErr
	}
	b.objects[key] = data
	return stubBlobBase + key, nil
}

func (b *stubBlobStore) Delete(_ context.Context, ref string) error {
	b.calls = append(b.calls, "delete:"+ref)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.objects, strings.TrimPrefix(ref, stubBlobBase))
	return nil
}

func (b *stubBlobStore) Owns(ref string) bool {
	return strings.HasPrefix(ref, stubBlobBase)
}

func (b *stubBlobStore) Ping(context.Context) error { return nil }

func (b *stubBlobStore) count(prefix string) int {
	n := 0
	for _, c := range b.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Orphan collector and identity cache stubs
// ---------------------------------------------------------------------------

type stubCollector struct {
	refs []string
}

func (c *stubCollector) Collect(ref string) {
	c.refs = append(c.refs, ref)
}

type stubCache struct {
	bySecret    map[string]*domain.User
	getErr      error
	invalidated []string
}

func newStubCache() *stubCache {
	return &stubCache{bySecret: make(map[string]*domain.User)}
}

func (c *stubCache) Get(_ context.Context, secret string) (*domain.User, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	u, ok := c.bySecret[secret]
	return u, ok, nil
}

func (c *stubCache) Set(_ context.Context, secret string, u *domain.User) error {
	c.bySecret[secret] = u
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, userID string) error {
	c.invalidated = append(c.invalidated, userID)
	for k, u := range c.bySecret {
		if u.ID == userID {
			delete(c.bySecret, k)
		}
	}
	return nil
}

var errStub = errors.New("stub failure")
