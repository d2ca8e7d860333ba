package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"unisync/internal/domain/attendance"
)

const keyPrefix = "unisync:marked:"

// RedisMarkedCache keeps one hash per session: student id -> status.
type RedisMarkedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMarkedCache(client *redis.Client, ttl time.Duration) *RedisMarkedCache {
	return &RedisMarkedCache{client: client, ttl: ttl}
}

func markedKey(sessionID uuid.UUID) string {
	return keyPrefix + sessionID.String()
}

// Load returns the cached mapping; ok is false on a miss.
func (c *RedisMarkedCache) Load(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]attendance.Status, bool, error) {
	fields, err := c.client.HGetAll(ctx, markedKey(sessionID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read marked cache: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	marked := make(map[uuid.UUID]attendance.Status, len(fields))
	for k, v := range fields {
		studentID, err := uuid.Parse(k)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt marked cache entry %q: %w", k, err)
		}
		status, err := attendance.ParseStatus(v)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt marked cache entry %q: %w", k, err)
		}
		marked[studentID] = status
	}
	return marked, true, nil
}

// Extend adds marks to the session's hash and refreshes its expiry.
func (c *RedisMarkedCache) Extend(ctx context.Context, sessionID uuid.UUID, marked map[uuid.UUID]attendance.Status) error {
	if len(marked) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(marked))
	for studentID, status := range marked {
		values[studentID.String()] = string(status)
	}

	key := markedKey(sessionID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to extend marked cache: %w", err)
	}
	return nil
}

// Invalidate deletes the session's hash.
func (c *RedisMarkedCache) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	if err := c.client.Del(ctx, markedKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate marked cache: %w", err)
	}
	return nil
}
