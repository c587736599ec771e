package cache

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/tipcast/tipcast/internal/clock"
	"github.com/tipcast/tipcast/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProvideReplayCache picks redis when configured, in-process otherwise.
func ProvideReplayCache(cfg config.Config, clk clock.Clock, client *redis.Client) ReplayCache {
	if client != nil {
		return NewRedisReplayCache(client)
	}
	return NewMemoryReplayCache(clk)
}

func ProvideRateLimiter(cfg config.Config, clk clock.Clock, client *redis.Client) RateLimiter {
	if client != nil {
		return NewRedisSlidingWindow(client)
	}
	return NewMemorySlidingWindow(clk)
}

func provideRedis(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})
	log.Info("security caches backed by redis", zap.String("addr", cfg.Redis.Addr))
	return client
}

var Module = fx.Module("security.cache",
	fx.Provide(provideRedis),
	fx.Provide(ProvideReplayCache),
	fx.Provide(ProvideRateLimiter),
)
