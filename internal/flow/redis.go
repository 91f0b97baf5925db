package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists flow state as JSON values with a Redis TTL, so
// in-progress dialogs survive process restarts and abandoned ones
// expire server-side.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func flowKey(userID int64) string {
	return fmt.Sprintf("flow:%d", userID)
}

// Get returns the user's state, or nil when absent or expired.
func (s *RedisStore) Get(ctx context.Context, userID int64) (*State, error) {
	data, err := s.client.Get(ctx, flowKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flow state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode flow state: %w", err)
	}
	return &state, nil
}

// Set replaces the user's state and resets its TTL.
func (s *RedisStore) Set(ctx context.Context, userID int64, state *State, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode flow state: %w", err)
	}
	if err := s.client.Set(ctx, flowKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set flow state: %w", err)
	}
	return nil
}

// Clear removes the user's state, if any.
func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, flowKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear flow state: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
