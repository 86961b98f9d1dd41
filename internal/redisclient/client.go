package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"travel-booking-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_unit.lua
var reserveUnitScript string

//go:embed scripts/release_unit.lua
var releaseUnitScript string

// ErrNotCached is returned when an inventory key has not been synced to
// Redis; callers fall back to the database path.
var ErrNotCached = fmt.Errorf("inventory not cached")

type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
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

	return &Client{
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveUnitScript),
		releaseScript: redis.NewScript(releaseUnitScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func inventoryKey(kind models.InventoryKind, id int64) string {
	return fmt.Sprintf("inventory:%s:%d", kind, id)
}

// ReserveUnit atomically reserves one unit using a Lua script. The
// availability check and the decrement execute as a single Redis
// command, so concurrent reservations of the last unit cannot both
// succeed. Returns false when the item is sold out.
func (c *Client) ReserveUnit(ctx context.Context, kind models.InventoryKind, id int64) (bool, error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{inventoryKey(kind, id)}).Result()
	if err != nil {
		return false, fmt.Errorf("reserve unit script failed: %w", err)
	}

	outcome, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	if outcome < 0 {
		return false, ErrNotCached
	}

	return outcome == 1, nil
}

// ReleaseUnit returns one unit, capped at the item's total
func (c *Client) ReleaseUnit(ctx context.Context, kind models.InventoryKind, id int64) error {
	result, err := c.releaseScript.Run(ctx, c.rdb, []string{inventoryKey(kind, id)}).Result()
	if err != nil {
		return fmt.Errorf("release unit script failed: %w", err)
	}

	if outcome, ok := result.(int64); ok && outcome < 0 {
		return ErrNotCached
	}
	return nil
}

// InitInventory initializes an inventory key from the database counts
func (c *Client) InitInventory(ctx context.Context, kind models.InventoryKind, id int64, available, total int) error {
	key := inventoryKey(kind, id)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "available", available)
	pipe.HSet(ctx, key, "total", total)

	_, err := pipe.Exec(ctx)
	return err
}

// SetIdempotencyKey maps an idempotency key to its booking id with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, bookingID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), bookingID, ttl).Err()
}

// GetIdempotencyKey returns the booking id stored under an idempotency
// key, or ErrNotCached when the key is unknown or expired.
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (int64, error) {
	result, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Int64()
	if err == redis.Nil {
		return 0, ErrNotCached
	}
	if err != nil {
		return 0, err
	}
	return result, nil
}

// GetAvailable retrieves the cached available count
func (c *Client) GetAvailable(ctx context.Context, kind models.InventoryKind, id int64) (int, error) {
	result, err := c.rdb.HGet(ctx, inventoryKey(kind, id), "available").Result()
	if err == redis.Nil {
		return 0, ErrNotCached
	}
	if err != nil {
		return 0, err
	}

	var available int
	if _, err := fmt.Sscanf(result, "%d", &available); err != nil {
		return 0, fmt.Errorf("malformed inventory count: %w", err)
	}
	return available, nil
}
