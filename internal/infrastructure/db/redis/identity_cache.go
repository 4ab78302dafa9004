package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socis/member-portal/internal/core/domain"
)

const defaultIdentityTTL = 30 * time.Second

// IdentityCache caches access-token lookups backed by Redis.
// Key format:
//
//	identity:<sha256(secret)>  → JSON user (secret never stored)
//	identity:user:<user_id>    → sha256(secret), used for invalidation
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdentityCache creates an IdentityCache wrapping the given Redis client.
// If ttl <= 0, defaultIdentityTTL is used.
func NewIdentityCache(client *redis.Client, ttl time.Duration) *IdentityCache {
	if ttl <= 0 {
		ttl = defaultIdentityTTL
	}
	return &IdentityCache{client: client, ttl: ttl}
}

// Get returns the cached user for secret, if any.
func (c *IdentityCache) Get(ctx context.Context, secret string) (*domain.User, bool, error) {
	raw, err := c.client.Get(ctx, c.tokenKey(HashToken(secret))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("identity cache get: %w", err)
	}

	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, false, fmt.Errorf("identity cache decode: %w", err)
	}
	return &u, true, nil
}

// Set caches user under secret (expires after ttl).
func (c *IdentityCache) Set(ctx context.Context, secret string, user *domain.User) error {
	raw, err := json.Marshal(user.Redacted())
	if err != nil {
		return fmt.Errorf("identity cache encode: %w", err)
	}

	hash := HashToken(secret)
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, c.tokenKey(hash), raw, c.ttl)
		p.Set(ctx, c.userKey(user.ID), hash, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("identity cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached identity of userID.
func (c *IdentityCache) Invalidate(ctx context.Context, userID string) error {
	hash, err := c.client.Get(ctx, c.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("identity cache invalidate: %w", err)
	}
	if err := c.client.Del(ctx, c.tokenKey(hash), c.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("identity cache invalidate: %w", err)
	}
	return nil
}

func (c *IdentityCache) tokenKey(hash string) string {
	return "identity:" + hash
}

func (c *IdentityCache) userKey(userID string) string {
	return "identity:user:" + userID
}

// HashToken returns the hex SHA-256 of an access token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
