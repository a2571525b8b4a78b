package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheScopedInvalidation(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	cache.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	cache.Set(ctx, 1, 11, []string{PermFoodCostsRead})
	cache.Set(ctx, 2, 10, []string{PermFoodCostsRead})
	cache.Set(ctx, 2, 11, []string{PermFoodCostsRead})

	require.NoError(t, cache.Invalidate(ctx, InvalidationEvent{UserID: 1, PropertyID: 10}))
	_, ok := cache.Get(ctx, 1, 10)
	require.False(t, ok)
	_, ok = cache.Get(ctx, 1, 11)
	require.True(t, ok)

	require.NoError(t, cache.Invalidate(ctx, InvalidationEvent{UserID: 1}))
	_, ok = cache.Get(ctx, 1, 11)
	require.False(t, ok)
	_, ok = cache.Get(ctx, 2, 11)
	require.True(t, ok)

	require.NoError(t, cache.Invalidate(ctx, InvalidationEvent{PropertyID: 10}))
	_, ok = cache.Get(ctx, 2, 10)
	require.False(t, ok)

	require.NoError(t, cache.Invalidate(ctx, InvalidationEvent{}))
	require.Zero(t, cache.Len())
}

func TestMemoryCacheCopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	perms := []string{PermFoodCostsRead, PermBeverageCostsRead}
	cache.Set(ctx, 1, 10, perms)
	perms[0] = "mutated"

	got, ok := cache.Get(ctx, 1, 10)
	require.True(t, ok)
	require.Equal(t, []string{PermFoodCostsRead, PermBeverageCostsRead}, got)

	got[1] = "mutated"
	again, _ := cache.Get(ctx, 1, 10)
	require.Equal(t, PermBeverageCostsRead, again[1])
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, time.Minute), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t)

	_, ok := cache.Get(ctx, 1, 10)
	require.False(t, ok)

	cache.Set(ctx, 1, 10, []string{PermFoodCostsRead, PermReportsExport})
	got, ok := cache.Get(ctx, 1, 10)
	require.True(t, ok)
	require.Equal(t, []string{PermFoodCostsRead, PermReportsExport}, got)
}

func TestRedisCacheScopedInvalidation(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t)

	cache.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	cache.Set(ctx, 1, 11, []string{PermFoodCostsRead})
	cache.Set(ctx, 2, 10, []string{PermFoodCostsRead})

	require.NoError(t, cache.Invalidate(ctx, InvalidationEvent{UserID: 1, PropertyID: 10}))
	_, ok := cache.Get(ctx, 1, 10)
	require.False(t, ok)
	_, ok = cache.Get(ctx, 1, 11)
	require.True(t, ok)

	require.NoError(t, cache.Invalidate(ctx, InvalidationEvent{UserID: 1}))
	_, ok = cache.Get(ctx, 1, 11)
	require.False(t, ok)
	_, ok = cache.Get(ctx, 2, 10)
	require.True(t, ok)

	require.NoError(t, cache.Invalidate(ctx, InvalidationEvent{PropertyID: 10}))
	_, ok = cache.Get(ctx, 2, 10)
	require.False(t, ok)
}

func TestRedisCacheFullInvalidationBumpsVersion(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)

	cache.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	before, err := mr.Get("rbac:version")
	require.NoError(t, err)
	require.Equal(t, "1", before)

	require.NoError(t, cache.Invalidate(ctx, InvalidationEvent{Reason: ReasonRolePermissions}))
	after, err := mr.Get("rbac:version")
	require.NoError(t, err)
	require.Equal(t, "2", after)

	// Old-version entries are unreachable behind the bumped namespace.
	_, ok := cache.Get(ctx, 1, 10)
	require.False(t, ok)

	cache.Set(ctx, 1, 10, []string{PermReportsExport})
	got, ok := cache.Get(ctx, 1, 10)
	require.True(t, ok)
	require.Equal(t, []string{PermReportsExport}, got)
}

func TestRedisCacheEntryTTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)

	cache.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, 1, 10)
	require.False(t, ok)
}

func TestLayeredCachePromotesRemoteHits(t *testing.T) {
	ctx := context.Background()
	remote, _ := newRedisCache(t)
	local := NewMemoryCache()
	layered := NewLayeredCache(local, remote)

	remote.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	require.Zero(t, local.Len())

	got, ok := layered.Get(ctx, 1, 10)
	require.True(t, ok)
	require.Equal(t, []string{PermFoodCostsRead}, got)
	require.Equal(t, 1, local.Len())
}

func TestLayeredCacheInvalidatesBothTiers(t *testing.T) {
	ctx := context.Background()
	remote, _ := newRedisCache(t)
	local := NewMemoryCache()
	layered := NewLayeredCache(local, remote)

	layered.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	require.NoError(t, layered.Invalidate(ctx, InvalidationEvent{UserID: 1, PropertyID: 10}))

	_, ok := local.Get(ctx, 1, 10)
	require.False(t, ok)
	_, ok = remote.Get(ctx, 1, 10)
	require.False(t, ok)
	_, ok = layered.Get(ctx, 1, 10)
	require.False(t, ok)
}

func TestScopedInvalidationReachesOtherNodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	localA := NewMemoryCache()
	nodeA := NewLayeredCache(localA, NewRedisCache(clientA, time.Minute))
	nodeB := NewLayeredCache(NewMemoryCache(), NewRedisCache(clientB, time.Minute))

	nodeA.ListenForBumps(ctx)
	nodeA.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	nodeA.Set(ctx, 2, 10, []string{PermFoodCostsRead})

	// Revoking on node B must drop node A's local entry for the user, not
	// just the shared redis entry. Re-publish until the subscriber has it.
	require.Eventually(t, func() bool {
		_ = nodeB.Invalidate(ctx, InvalidationEvent{UserID: 1, Reason: ReasonAccessRevoked})
		return localA.Len() == 1
	}, 2*time.Second, 20*time.Millisecond)

	_, ok := nodeA.Get(ctx, 1, 10)
	require.False(t, ok)
	_, ok = nodeA.Get(ctx, 2, 10)
	require.True(t, ok)
}

func TestParseBumpPayload(t *testing.T) {
	ev := parseBumpPayload(`{"user_id":7,"reason":"property_access_revoked"}`)
	require.Equal(t, int64(7), ev.UserID)
	require.Zero(t, ev.PropertyID)

	// A bare version counter, or garbage, flushes everything.
	require.Equal(t, InvalidationEvent{Reason: "remote_bump"}, parseBumpPayload("3"))
	require.Equal(t, InvalidationEvent{Reason: "remote_bump"}, parseBumpPayload("not json"))
	require.Equal(t, InvalidationEvent{Reason: "remote_bump"}, parseBumpPayload(`{"reason":"x"}`))
}
