package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "order-admin:session:"

// RedisStore keeps session state as JSON under a TTL so several server
// instances can share it
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore on top of client
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient builds the client used by NewRedisStore
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*State, error) {
	raw, err := r.client.Get(ctx, redisKey(sessionID)).Bytes()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	var state State

	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}

	return &state, nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, state *State) error {
	raw, err := json.Marshal(state)

	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	if err := r.client.Set(ctx, redisKey(sessionID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}

	return nil
}
