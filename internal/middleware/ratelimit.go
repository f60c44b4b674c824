package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NoopLimiter пропускает всё — используется, когда Redis не настроен.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

var redisWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisWindowLimiter — фиксированное окно на ключ (IP, e-mail).
type RedisWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisWindowLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisWindowLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *RedisWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.client == nil {
		return true, errors.New("redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	n, err := redisWindowScript.Run(ctx, l.client, []string{fmt.Sprintf("%s:%s", l.prefix, key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return true, err
	}
	return n <= int64(l.limit), nil
}
