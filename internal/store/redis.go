package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	suggestionTTL = 10 * time.Minute
	replayTTL     = 5 * time.Minute
)

// RedisStore handles Redis operations: suggestion caching, rate limit
// counters and webhook replay protection.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client returns the underlying Redis client (used by the rate limiter).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// suggestionKey normalizes a query into a bounded cache key.
func suggestionKey(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return "suggestions:" + hex.EncodeToString(sum[:16])
}

// GetSuggestions returns cached suggestions for a query, or ok=false on
// a cache miss.
func (s *RedisStore) GetSuggestions(ctx context.Context, query string) ([]string, bool) {
	data, err := s.client.Get(ctx, suggestionKey(query)).Bytes()
	if err != nil {
		return nil, false
	}

	var suggestions []string
	if err := json.Unmarshal(data, &suggestions); err != nil {
		return nil, false
	}
	return suggestions, true
}

// SetSuggestions caches suggestions for a query with a short TTL.
func (s *RedisStore) SetSuggestions(ctx context.Context, query string, suggestions []string) error {
	data, err := json.Marshal(suggestions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, suggestionKey(query), data, suggestionTTL).Err()
}

// IsEventSeen checks whether a webhook message id was already processed.
func (s *RedisStore) IsEventSeen(ctx context.Context, messageID string) bool {
	exists, _ := s.client.Exists(ctx, "webhook:seen:"+messageID).Result()
	return exists > 0
}

// MarkEventSeen records a webhook message id for replay protection.
func (s *RedisStore) MarkEventSeen(ctx context.Context, messageID string) {
	s.client.Set(ctx, "webhook:seen:"+messageID, "1", replayTTL)
}
