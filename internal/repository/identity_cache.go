package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/user-api/internal/domain"
)

const (
	identityKeyPrefix   = "identity:"
	generationKeyPrefix = "identity-gen:"
)

// errStaleIdentity aborts a cache write that raced with Invalidate.
var errStaleIdentity = errors.New("identity invalidated during load")

// IdentityCache is a Redis read-through cache in front of a UsernameLookup.
// Password hashes are never cached, so users returned from a cache hit carry
// an empty PasswordHash; use it for request authentication only, never for login.
type IdentityCache struct {
	client *redis.Client
	next   UsernameLookup
	ttl    time.Duration
	logger *zap.Logger
}

type cachedIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// NewIdentityCache wraps next. A nil client or non-positive ttl turns the cache into a pass-through.
func NewIdentityCache(client *redis.Client, next UsernameLookup, ttl time.Duration, logger *zap.Logger) *IdentityCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityCache{client: client, next: next, ttl: ttl, logger: logger}
}

func (c *IdentityCache) enabled() bool {
	return c.client != nil && c.ttl > 0
}

// GetByUsername returns the cached identity or loads and caches it. Misses are not cached.
func (c *IdentityCache) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if !c.enabled() {
		return c.next.GetByUsername(ctx, username)
	}

	key := identityKeyPrefix + username
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedIdentity
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &domain.User{ID: cached.ID, Username: cached.Username, Email: cached.Email, Role: cached.Role}, nil
		}
		c.logger.Warn("discarding undecodable cached identity", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("identity cache read failed", zap.Error(err))
	}

	// The generation is read before loading so an Invalidate that lands
	// while the load is in flight makes the write below a no-op.
	generation, err := c.client.Get(ctx, generationKeyPrefix+username).Result()
	cacheable := err == nil || errors.Is(err, redis.Nil)
	if !cacheable {
		c.logger.Warn("identity generation read failed", zap.Error(err))
	}

	user, err := c.next.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.store(ctx, key, username, generation, user)
	}
	return user, nil
}

func (c *IdentityCache) store(ctx context.Context, key, username, generation string, user *domain.User) {
	payload, err := json.Marshal(cachedIdentity{ID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role})
	if err != nil {
		return
	}

	genKey := generationKeyPrefix + username
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleIdentity
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleIdentity), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("skipping stale identity write", zap.String("key", key))
	default:
		c.logger.Warn("identity cache write failed", zap.Error(err))
	}
}

// Invalidate drops cached identities for the given usernames and bumps their
// generation so loads already in flight do not write them back.
func (c *IdentityCache) Invalidate(ctx context.Context, usernames ...string) error {
	if !c.enabled() || len(usernames) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, username := range usernames {
			if username == "" {
				continue
			}
			pipe.Incr(ctx, generationKeyPrefix+username)
			pipe.Del(ctx, identityKeyPrefix+username)
		}
		return nil
	})
	return err
}
