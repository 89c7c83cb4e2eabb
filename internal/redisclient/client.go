package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_room.lua
var reserveRoomScript string

//go:embed scripts/release_room.lua
var releaseRoomScript string

// Reservation outcomes of the reserve_room script.
const (
	ReserveUnknown = -1 // counter missing, fall back to the database
	ReserveSoldOut = 0
	ReserveOK      = 1
)

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
		reserveScript: redis.NewScript(reserveRoomScript),
		releaseScript: redis.NewScript(releaseRoomScript),
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

func roomKey(hotelID int64) string {
	return fmt.Sprintf("rooms:%d", hotelID)
}

// ReserveRoom atomically decrements the hotel's room counter.
// Returns ReserveOK, ReserveSoldOut, or ReserveUnknown.
func (c *Client) ReserveRoom(ctx context.Context, hotelID int64) (int, error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{roomKey(hotelID)}).Result()
	if err != nil {
		return ReserveUnknown, fmt.Errorf("reserve room script failed: %w", err)
	}

	outcome, ok := result.(int64)
	if !ok {
		return ReserveUnknown, fmt.Errorf("unexpected script result type")
	}

	return int(outcome), nil
}

// ReleaseRoom atomically increments the hotel's room counter (compensation)
func (c *Client) ReleaseRoom(ctx context.Context, hotelID int64) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{roomKey(hotelID)}).Result()
	if err != nil {
		return fmt.Errorf("release room script failed: %w", err)
	}
	return nil
}

// SyncRoomCount sets the hotel's room counter from the database value
func (c *Client) SyncRoomCount(ctx context.Context, hotelID int64, availableRooms int) error {
	return c.rdb.Set(ctx, roomKey(hotelID), availableRooms, 0).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// GetIdempotencyKey returns the stored value for an idempotency key, or ""
// when the key is unknown.
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
