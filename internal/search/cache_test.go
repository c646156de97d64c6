package search

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "", time.Minute), mr
}

func samplePage() *Result {
	return &Result{
		Hits:    []Hit{{ID: "d1", Title: "hello", Score: 1.2}},
		Total:   1,
		Page:    1,
		PerPage: 20,
		Source:  "engine",
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	got, err := c.Get(ctx, "t1", "hello", 1, 20)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, "t1", "hello", 1, 20, samplePage()))

	got, err = c.Get(ctx, "t1", "hello", 1, 20)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Total)
	assert.Equal(t, "d1", got.Hits[0].ID)
}

func TestCacheKeyIsScopedToTenantAndPage(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "t1", "hello", 1, 20, samplePage()))

	got, err := c.Get(ctx, "t2", "hello", 1, 20)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, "t1", "hello", 2, 20)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, "t1", "other", 1, 20)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "t1", "hello", 1, 20, samplePage()))
	mr.FastForward(2 * time.Minute)

	got, err := c.Get(ctx, "t1", "hello", 1, 20)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheInvalidateTenant(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "t1", "alpha", 1, 20, samplePage()))
	require.NoError(t, c.Set(ctx, "t1", "beta", 1, 20, samplePage()))
	require.NoError(t, c.Set(ctx, "t2", "alpha", 1, 20, samplePage()))

	require.NoError(t, c.InvalidateTenant(ctx, "t1"))

	got, err := c.Get(ctx, "t1", "alpha", 1, 20)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = c.Get(ctx, "t1", "beta", 1, 20)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, "t2", "alpha", 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCacheCorruptEntryTreatedAsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(c.key("t1", "hello", 1, 20), "{not json"))

	got, err := c.Get(ctx, "t1", "hello", 1, 20)
	require.NoError(t, err)
	assert.Nil(t, got)
}
