package tokenstore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "refresh:"

// Rotation outcomes reported by the compare-and-swap script.
const (
	rotateStatusNotFound = 0
	rotateStatusMismatch = 1
	rotateStatusRotated  = 2
)

// rotateScript swaps the stored token only when the presented one matches,
// in a single server-side step so concurrent rotations cannot both win.
var rotateScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "EX", ARGV[3])
return 2
`)

// RedisStore keeps refresh tokens in redis with a native TTL, trading
// durability across a cache flush for cheap expiry and low read latency.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore returns a cache-backed Store. An empty keyPrefix falls
// back to "refresh:".
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) key(subject string) string {
	return s.keyPrefix + subject
}

func (s *RedisStore) Put(ctx context.Context, subject, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(subject), token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Validate(ctx context.Context, subject, token string) error {
	current, err := s.client.Get(ctx, s.key(subject)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if subtle.ConstantTimeCompare([]byte(current), []byte(token)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

func (s *RedisStore) Rotate(ctx context.Context, subject, oldToken, newToken string, ttl time.Duration) error {
	seconds := int(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	status, err := rotateScript.Run(ctx, s.client, []string{s.key(subject)}, oldToken, newToken, seconds).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrTokenNotFound
	case rotateStatusMismatch:
		return ErrTokenMismatch
	default:
		return fmt.Errorf("%w: unexpected rotate status %d", ErrUnavailable, status)
	}
}

func (s *RedisStore) Revoke(ctx context.Context, subject string) error {
	if err := s.client.Del(ctx, s.key(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
