package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-lifecycle/internal/clock"
	"github.com/spec-kit/ticket-lifecycle/internal/domain"
)

const roleKeyPrefix = "role:"

// RoleCache wraps a RoleResolver with a TTL cache. Backed by Redis when a
// client is configured; otherwise an in-process map with an injected clock.
// Cache entries are advisory — Invalidate must be called when an agent's role
// changes so stale grants don't outlive the TTL.
type RoleCache struct {
	resolver RoleResolver
	client   *redis.Client
	ttl      time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]cachedRole
}

type cachedRole struct {
	role      domain.Role
	expiresAt time.Time
}

// NewRoleCache builds the cache. client may be nil.
func NewRoleCache(resolver RoleResolver, client *redis.Client, ttl time.Duration, clk clock.Clock, logger *zap.Logger) *RoleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RoleCache{
		resolver: resolver,
		client:   client,
		ttl:      ttl,
		clock:    clk,
		logger:   logger,
		entries:  make(map[string]cachedRole),
	}
}

// Resolve returns the cached role when fresh, falling through to the wrapped
// resolver otherwise. Cache write failures degrade to uncached resolution.
func (c *RoleCache) Resolve(ctx context.Context, actorID string) (domain.Role, error) {
	if role, ok := c.lookup(ctx, actorID); ok {
		return role, nil
	}

	role, err := c.resolver.Resolve(ctx, actorID)
	if err != nil {
		return "", err
	}
	c.put(ctx, actorID, role)
	return role, nil
}

// Invalidate drops the cached role for one actor.
func (c *RoleCache) Invalidate(ctx context.Context, actorID string) {
	if c.client != nil {
		if err := c.client.Del(ctx, roleKeyPrefix+actorID).Err(); err != nil {
			c.logger.Warn("role cache invalidate failed", zap.String("actor_id", actorID), zap.Error(err))
		}
		return
	}
	c.mu.Lock()
	delete(c.entries, actorID)
	c.mu.Unlock()
}

// InvalidateAll drops every cached role.
func (c *RoleCache) InvalidateAll(ctx context.Context) {
	if c.client != nil {
		iter := c.client.Scan(ctx, 0, roleKeyPrefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				c.logger.Warn("role cache invalidate failed", zap.String("key", iter.Val()), zap.Error(err))
			}
		}
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]cachedRole)
	c.mu.Unlock()
}

func (c *RoleCache) lookup(ctx context.Context, actorID string) (domain.Role, bool) {
	if c.client != nil {
		val, err := c.client.Get(ctx, roleKeyPrefix+actorID).Result()
		if err != nil {
			return "", false
		}
		return domain.Role(val), true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[actorID]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		delete(c.entries, actorID)
		return "", false
	}
	return entry.role, true
}

func (c *RoleCache) put(ctx context.Context, actorID string, role domain.Role) {
	if c.client != nil {
		if err := c.client.Set(ctx, roleKeyPrefix+actorID, string(role), c.ttl).Err(); err != nil {
			c.logger.Warn("role cache store failed", zap.String("actor_id", actorID), zap.Error(err))
		}
		return
	}

	c.mu.Lock()
	c.entries[actorID] = cachedRole{role: role, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}
