package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyReplayNonce = "security:replay:%s:%s"
	keyRateWindow  = "security:rate:%s"
)

// slidingWindowScript trims the window, counts what remains, and admits
// the request when the count is under the limit. Runs atomically.
const slidingWindowScript = `
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, now - window)
local count = redis.call("ZCARD", KEYS[1])
if count >= limit then
  return 0
end

redis.call("ZADD", KEYS[1], now, ARGV[3])
redis.call("PEXPIRE", KEYS[1], window)
return 1
`

// RedisReplayCache marks nonces with SET NX so overlapping instances
// share one replay window.
type RedisReplayCache struct {
	client *redis.Client
}

func NewRedisReplayCache(client *redis.Client) *RedisReplayCache {
	if client == nil {
		return nil
	}
	return &RedisReplayCache{client: client}
}

func (c *RedisReplayCache) MarkNonce(ctx context.Context, token, nonce string, ttl time.Duration) (bool, error) {
	if c == nil || c.client == nil {
		return false, errors.New("replay cache not configured")
	}
	key := fmt.Sprintf(keyReplayNonce, token, nonce)
	return c.client.SetNX(ctx, key, 1, ttl).Result()
}

// RedisSlidingWindow is the shared-cache form of the rate limiter.
type RedisSlidingWindow struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisSlidingWindow(client *redis.Client) *RedisSlidingWindow {
	if client == nil {
		return nil
	}
	return &RedisSlidingWindow{
		client: client,
		script: redis.NewScript(slidingWindowScript),
	}
}

func (l *RedisSlidingWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return false, errors.New("rate limiter not configured")
	}
	if key == "" {
		return false, errors.New("rate limiter key is empty")
	}
	if limit <= 0 {
		return false, errors.New("rate limiter limit must be positive")
	}

	res, err := l.script.Run(
		ctx,
		l.client,
		[]string{fmt.Sprintf(keyRateWindow, key)},
		limit,
		int64(window/time.Millisecond),
		uuid.NewString(),
	).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
