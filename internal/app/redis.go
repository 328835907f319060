package app

import (
	"context"
	"time"

	"codeatlas/internal/common/logging"
	"codeatlas/internal/redis"
)

const connectTimeout = 10 * time.Second

func (app *App) initializeRedis() error {
	cacheCfg := app.Config.Cache
	if !cacheCfg.Enabled {
		app.Logger.Info("Cache remote tier: Not configured (memory-only caches)")
		return nil
	}

	redisConfig := &redis.Config{
		URL:           cacheCfg.URL,
		Password:      cacheCfg.Password,
		DB:            cacheCfg.DB,
		PoolSize:      cacheCfg.Pool.Max,
		MinIdleConns:  cacheCfg.Pool.Min,
		RetryAttempts: cacheCfg.Retry.Attempts,
		RetryDelay:    cacheCfg.Retry.Delay,
	}

	client, err := redis.NewClient(redisConfig, app.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		client.Close()
		return err
	}

	client.OnStateChange(func(old, new redis.ConnectionState) {
		app.Logger.Info("Redis connection state changed",
			logging.Field{Key: "from", Value: old.String()},
			logging.Field{Key: "to", Value: new.String()},
		)
	})

	app.RedisClient = client
	app.Logger.Info("Cache remote tier: Connected", logging.Field{Key: "url", Value: cacheCfg.URL})

	return nil
}
