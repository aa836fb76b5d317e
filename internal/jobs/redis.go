package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/brandscan/internal/model"
)

// Redis store defaults.
const (
	DefaultRedisPrefix = "brandscan:job:"
	DefaultRedisTTL    = 24 * time.Hour
)

// RedisStore keeps job states in Redis as JSON strings that expire after
// the TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisTTL sets how long a state lives after its last update.
// Zero keeps states forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore connects to the Redis server at addr ("host:port").
// The connection is established lazily on first use.
func NewRedisStore(addr string, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: DefaultRedisPrefix,
		ttl:    DefaultRedisTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks that the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Put writes the state and refreshes its TTL.
func (s *RedisStore) Put(ctx context.Context, state model.JobState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize job state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job state: %w", err)
	}
	return nil
}

// Get reads the state.
func (s *RedisStore) Get(ctx context.Context, id string) (model.JobState, bool, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.JobState{}, false, nil
		}
		return model.JobState{}, false, fmt.Errorf("failed to read job state: %w", err)
	}

	var state model.JobState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return model.JobState{}, false, fmt.Errorf("failed to parse job state: %w", err)
	}
	return state, true, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
