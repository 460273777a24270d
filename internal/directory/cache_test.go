package directory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgdir/internal/model"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, time.Minute)
	c.Set(ctx, "a", []model.Organization{{ID: 1}})
	c.Set(ctx, "b", []model.Organization{{ID: 2}})
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)
	c.Set(ctx, "c", []model.Organization{{ID: 3}})

	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, int64(1), v[0].ID)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpires(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(4, time.Millisecond)
	c.Set(ctx, "a", nil)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestNewResultCacheFallsBackToLRU(t *testing.T) {
	_, ok := NewResultCache(nil, time.Minute, 8).(*LRU)
	assert.True(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rc := redis.NewClient(&redis.Options{Addr: addr})
	defer rc.Close()
	require.NoError(t, rc.Ping(ctx).Err())

	c := NewRedisCache(rc, time.Minute)
	want := []model.Organization{{ID: 7, Name: "Fresh Dairy", BuildingID: 1, Phones: []string{"1"}, ActivityIDs: []int64{3}}}
	c.Set(ctx, "test:a", want)
	got, ok := c.Get(ctx, "test:a")
	require.True(t, ok)
	assert.Equal(t, want, got)

	c.Purge(ctx)
	_, ok = c.Get(ctx, "test:a")
	assert.False(t, ok)
}
