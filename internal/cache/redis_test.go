package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := "user123"
	cart := &domain.Cart{
		UserID: userID,
		Items: []domain.CartItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		},
		Version:   4,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	cartJSON, _ := json.Marshal(cart)
	require.NoError(t, mr.Set(cacheKey(userID), string(cartJSON)))

	result, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, result.UserID)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, "p1", result.Items[0].ProductID)
	assert.Equal(t, int64(4), result.Version)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := "user123"
	require.NoError(t, mr.Set(cacheKey(userID), `{"user_id":"us`))

	_, err := cache.Get(context.Background(), userID)
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestGet_RedisDown(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()

	_, err := cache.Get(context.Background(), "user123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := "user456"
	cart := &domain.Cart{
		UserID: userID,
		Items:  []domain.CartItem{{ProductID: "p10", Quantity: 5}},
	}

	require.NoError(t, cache.Set(context.Background(), userID, cart))

	stored, err := mr.Get(cacheKey(userID))
	require.NoError(t, err)

	var storedCart domain.Cart
	require.NoError(t, json.Unmarshal([]byte(stored), &storedCart))
	assert.Equal(t, userID, storedCart.UserID)
	assert.Len(t, storedCart.Items, 1)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := "user789"
	require.NoError(t, cache.Set(context.Background(), userID, &domain.Cart{UserID: userID}))

	ttl := mr.TTL(cacheKey(userID))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute, "TTL should be at least base TTL")
	assert.LessOrEqual(t, ttl, 20*time.Minute, "TTL should be base + max jitter")
}

func TestSet_KeepsNewerVersion(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user321"

	require.NoError(t, cache.Set(ctx, userID, &domain.Cart{UserID: userID, Version: 5}))
	require.NoError(t, cache.Set(ctx, userID, &domain.Cart{UserID: userID, Version: 3}))

	got, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Version)

	require.NoError(t, cache.Set(ctx, userID, &domain.Cart{UserID: userID, Version: 6}))
	got, err = cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Version)
}

func TestSet_OverwritesUnreadableEntry(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := "user654"
	require.NoError(t, mr.Set(cacheKey(userID), "not json"))

	require.NoError(t, cache.Set(context.Background(), userID, &domain.Cart{UserID: userID, Version: 1}))
	got, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestDelete_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := "user999"
	require.NoError(t, mr.Set(cacheKey(userID), `{}`))
	assert.True(t, mr.Exists(cacheKey(userID)))

	require.NoError(t, cache.Delete(context.Background(), userID))
	assert.False(t, mr.Exists(cacheKey(userID)))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.NoError(t, cache.Delete(context.Background(), "nonexistent"))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:test123", cacheKey("test123"))
}
