package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"receiving-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const productKeyPrefix = "product:"

// releaseLockScript deletes the lock only while it is still held by the caller
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Wrap builds a Client around an existing connection
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks that Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func productKey(barcode string) string {
	return productKeyPrefix + barcode
}

// GetProduct returns the cached product, or nil on a cache miss
func (c *Client) GetProduct(ctx context.Context, barcode string) (*models.Product, error) {
	data, err := c.rdb.Get(ctx, productKey(barcode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached product: %w", err)
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to decode cached product: %w", err)
	}
	return &product, nil
}

// SetProduct caches a product under its barcode
func (c *Client) SetProduct(ctx context.Context, product models.Product, ttl time.Duration) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}
	return c.rdb.Set(ctx, productKey(product.Barcode), data, ttl).Err()
}

// InvalidateProduct drops the cached copy of a product
func (c *Client) InvalidateProduct(ctx context.Context, barcode string) error {
	return c.rdb.Del(ctx, productKey(barcode)).Err()
}

// FlushProducts drops every cached product
func (c *Client) FlushProducts(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, productKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan product keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// SetIdempotencyKey remembers the record created for an idempotency key
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, recordID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), recordID, ttl).Err()
}

// GetIdempotencyKey returns the record id stored for key, if any
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency key %s: %w", key, err)
	}
	return id, true, nil
}

// AcquireLock acquires a distributed lock owned by owner
func (c *Client) AcquireLock(ctx context.Context, lockKey, owner string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), owner, ttl).Result()
}

// ReleaseLock releases a distributed lock if owner still holds it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, owner string) error {
	return releaseLockScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, owner).Err()
}
