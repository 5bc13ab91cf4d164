package redisclient

import (
	"context"
	"testing"
	"time"

	"receiving-service/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestProductCache(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	product, err := c.GetProduct(ctx, "123")
	require.NoError(t, err)
	assert.Nil(t, product)

	widget := models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"}
	require.NoError(t, c.SetProduct(ctx, widget, time.Minute))
	require.NoError(t, c.SetProduct(ctx, models.Product{Barcode: "456", SKU: "B2", Brand: "ACME", Name: "Gadget"}, time.Minute))

	product, err = c.GetProduct(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, widget, *product)

	require.NoError(t, c.InvalidateProduct(ctx, "123"))
	product, err = c.GetProduct(ctx, "123")
	require.NoError(t, err)
	assert.Nil(t, product)

	require.NoError(t, mr.Set("lock:device", "someone"))
	require.NoError(t, c.FlushProducts(ctx))
	assert.False(t, mr.Exists("product:456"))
	assert.True(t, mr.Exists("lock:device"))
}

func TestProductCacheExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetProduct(ctx, models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"}, time.Second))
	mr.FastForward(2 * time.Second)

	product, err := c.GetProduct(ctx, "123")
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestIdempotencyKey(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := c.GetIdempotencyKey(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetIdempotencyKey(ctx, "req-1", 42, time.Hour))
	id, found, err := c.GetIdempotencyKey(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), id)
}

func TestLockOwnership(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "device", "session-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "device", "session-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// only the owner may release
	require.NoError(t, c.ReleaseLock(ctx, "device", "session-b"))
	assert.True(t, mr.Exists("lock:device"))

	require.NoError(t, c.ReleaseLock(ctx, "device", "session-a"))
	assert.False(t, mr.Exists("lock:device"))

	ok, err = c.AcquireLock(ctx, "device", "session-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
