package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Invalidation reasons recorded alongside cache drops.
const (
	ReasonAccessGranted   = "property_access_granted"
	ReasonAccessRevoked   = "property_access_revoked"
	ReasonRolePermissions = "role_permissions_changed"
	ReasonUserOverrides   = "user_overrides_changed"
	ReasonSubjectChanged  = "subject_changed"
	ReasonExpiredSweep    = "expired_grants_swept"
)

// InvalidationEvent scopes a cache drop. A zero UserID or PropertyID acts
// as a wildcard for that dimension; both zero drops everything. The JSON
// form travels over the pub/sub channel so other nodes apply the same
// scope to their local tier.
type InvalidationEvent struct {
	UserID     int64  `json:"user_id,omitempty"`
	PropertyID int64  `json:"property_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Cache memoizes resolved permission sets per (user, property) pair.
// Implementations must be safe for concurrent use. Invalidate returns only
// after the drop is applied locally; cross-process propagation is
// best-effort.
type Cache interface {
	Get(ctx context.Context, userID, propertyID int64) ([]string, bool)
	Set(ctx context.Context, userID, propertyID int64, perms []string)
	Invalidate(ctx context.Context, ev InvalidationEvent) error
}

type cacheKey struct {
	userID     int64
	propertyID int64
}

// MemoryCache is a mutex-guarded in-process cache. Entries are independent
// per key, so last-write-wins on concurrent miss recomputation is fine.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]string
}

// NewMemoryCache constructs an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[cacheKey][]string)}
}

func (c *MemoryCache) Get(_ context.Context, userID, propertyID int64) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	perms, ok := c.entries[cacheKey{userID, propertyID}]
	if !ok {
		return nil, false
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out, true
}

func (c *MemoryCache) Set(_ context.Context, userID, propertyID int64, perms []string) {
	stored := make([]string, len(perms))
	copy(stored, perms)
	c.mu.Lock()
	c.entries[cacheKey{userID, propertyID}] = stored
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(_ context.Context, ev InvalidationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case ev.UserID != 0 && ev.PropertyID != 0:
		delete(c.entries, cacheKey{ev.UserID, ev.PropertyID})
	case ev.UserID != 0:
		for key := range c.entries {
			if key.userID == ev.UserID {
				delete(c.entries, key)
			}
		}
	case ev.PropertyID != 0:
		for key := range c.entries {
			if key.propertyID == ev.PropertyID {
				delete(c.entries, key)
			}
		}
	default:
		c.entries = make(map[cacheKey][]string)
	}
	return nil
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

const (
	redisVersionKey  = "rbac:version"
	redisBumpChannel = "rbac.bump"
)

// RedisCache stores resolved permission sets in Redis under a versioned
// namespace. Scoped invalidation walks per-user and per-property key sets;
// a full invalidation bumps the version and publishes the new value so
// other nodes drop their in-process layer.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps the client. TTL bounds entry lifetime as a safety
// net; explicit invalidation remains the primary mechanism.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, redisVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, redisVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *RedisCache) entryKey(ver, userID, propertyID int64) string {
	return fmt.Sprintf("rbac:perms:%d:%d:%d", ver, userID, propertyID)
}

func (c *RedisCache) userSetKey(ver, userID int64) string {
	return fmt.Sprintf("rbac:keys:user:%d:%d", ver, userID)
}

func (c *RedisCache) propertySetKey(ver, propertyID int64) string {
	return fmt.Sprintf("rbac:keys:prop:%d:%d", ver, propertyID)
}

func (c *RedisCache) Get(ctx context.Context, userID, propertyID int64) ([]string, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	ver, err := c.version(ctx)
	if err != nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, c.entryKey(ver, userID, propertyID)).Bytes()
	if err != nil {
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal(payload, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

func (c *RedisCache) Set(ctx context.Context, userID, propertyID int64, perms []string) {
	if c == nil || c.client == nil {
		return
	}
	ver, err := c.version(ctx)
	if err != nil {
		return
	}
	payload, err := json.Marshal(perms)
	if err != nil {
		return
	}
	key := c.entryKey(ver, userID, propertyID)
	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, payload, c.ttl)
	pipe.SAdd(ctx, c.userSetKey(ver, userID), key)
	pipe.Expire(ctx, c.userSetKey(ver, userID), c.ttl)
	pipe.SAdd(ctx, c.propertySetKey(ver, propertyID), key)
	pipe.Expire(ctx, c.propertySetKey(ver, propertyID), c.ttl)
	_, _ = pipe.Exec(ctx)
}

func (c *RedisCache) Invalidate(ctx context.Context, ev InvalidationEvent) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.version(ctx)
	if err != nil {
		return err
	}
	switch {
	case ev.UserID != 0 && ev.PropertyID != 0:
		if err := c.client.Del(ctx, c.entryKey(ver, ev.UserID, ev.PropertyID)).Err(); err != nil {
			return err
		}
		return c.publishScoped(ctx, ev)
	case ev.UserID != 0:
		if err := c.dropTracked(ctx, c.userSetKey(ver, ev.UserID)); err != nil {
			return err
		}
		return c.publishScoped(ctx, ev)
	case ev.PropertyID != 0:
		if err := c.dropTracked(ctx, c.propertySetKey(ver, ev.PropertyID)); err != nil {
			return err
		}
		return c.publishScoped(ctx, ev)
	default:
		next, err := c.client.Incr(ctx, redisVersionKey).Result()
		if err != nil {
			return err
		}
		return c.client.Publish(ctx, redisBumpChannel, strconv.FormatInt(next, 10)).Err()
	}
}

// publishScoped announces a scoped drop so other nodes clear the matching
// entries from their in-process tier. Their local caches have no TTL, so
// without this a revocation would never converge across processes.
func (c *RedisCache) publishScoped(ctx context.Context, ev InvalidationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, redisBumpChannel, payload).Err()
}

func (c *RedisCache) dropTracked(ctx context.Context, setKey string) error {
	keys, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	keys = append(keys, setKey)
	return c.client.Del(ctx, keys...).Err()
}

// LayeredCache places an immediate-consistency in-process cache in front
// of the shared Redis tier. Invalidation applies to both before returning.
type LayeredCache struct {
	local  *MemoryCache
	remote *RedisCache
}

// NewLayeredCache combines the two tiers.
func NewLayeredCache(local *MemoryCache, remote *RedisCache) *LayeredCache {
	return &LayeredCache{local: local, remote: remote}
}

func (c *LayeredCache) Get(ctx context.Context, userID, propertyID int64) ([]string, bool) {
	if perms, ok := c.local.Get(ctx, userID, propertyID); ok {
		recordCacheHit("local")
		return perms, true
	}
	perms, ok := c.remote.Get(ctx, userID, propertyID)
	if ok {
		recordCacheHit("remote")
		c.local.Set(ctx, userID, propertyID, perms)
	} else {
		recordCacheMiss()
	}
	return perms, ok
}

func (c *LayeredCache) Set(ctx context.Context, userID, propertyID int64, perms []string) {
	c.local.Set(ctx, userID, propertyID, perms)
	c.remote.Set(ctx, userID, propertyID, perms)
}

func (c *LayeredCache) Invalidate(ctx context.Context, ev InvalidationEvent) error {
	if err := c.local.Invalidate(ctx, ev); err != nil {
		return err
	}
	return c.remote.Invalidate(ctx, ev)
}

// ListenForBumps subscribes to invalidation notifications from other
// nodes. Scoped events arrive as JSON and drop only the matching local
// entries; version bumps arrive as the bare counter value and flush the
// whole local tier. Best-effort; the versioned Redis namespace already
// prevents stale remote reads.
func (c *LayeredCache) ListenForBumps(ctx context.Context) {
	if c.remote == nil || c.remote.client == nil {
		return
	}
	pubsub := c.remote.client.Subscribe(ctx, redisBumpChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_ = c.local.Invalidate(ctx, parseBumpPayload(msg.Payload))
			}
		}
	}()
}

// parseBumpPayload maps a channel message onto a local invalidation.
// Anything that is not a scoped JSON event is treated as a version bump
// and flushes everything.
func parseBumpPayload(payload string) InvalidationEvent {
	var ev InvalidationEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || (ev.UserID == 0 && ev.PropertyID == 0) {
		return InvalidationEvent{Reason: "remote_bump"}
	}
	return ev
}
