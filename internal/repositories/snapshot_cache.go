package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/multistream/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisSnapshotCache stores the latest [models.DirectorySnapshot] per user in redis with a TTL.
//
// Keys follow "<client_id>:follows:<user_id>".
type RedisSnapshotCache struct {
	client   *redis.Client
	clientID string
	ttl      time.Duration
}

// NewRedisSnapshotCache connects to the redis instance at rawURL (redis://host:port/db).
func NewRedisSnapshotCache(rawURL, clientID string, ttl time.Duration) (*RedisSnapshotCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisSnapshotCacheWithClient(redis.NewClient(opts), clientID, ttl), nil
}

// NewRedisSnapshotCacheWithClient wraps an existing redis client.
func NewRedisSnapshotCacheWithClient(client *redis.Client, clientID string, ttl time.Duration) *RedisSnapshotCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisSnapshotCache{client: client, clientID: clientID, ttl: ttl}
}

func (c *RedisSnapshotCache) key(userID string) string {
	return fmt.Sprintf("%s:follows:%s", c.clientID, userID)
}

// Put stores snap under its user id.
func (c *RedisSnapshotCache) Put(ctx context.Context, snap models.DirectorySnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(snap.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot for userID, or false when none is cached or it expired.
func (c *RedisSnapshotCache) Get(ctx context.Context, userID string) (*models.DirectorySnapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap models.DirectorySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("%w: snapshot for %s: %v", ErrCorruptRecord, userID, err)
	}
	return &snap, true, nil
}

// Close releases the redis connection pool.
func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}
