package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"codeatlas/internal/cache"
	"codeatlas/internal/common/logging"
	"codeatlas/internal/config"
	"codeatlas/internal/redis"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Logger      logging.Logger
	RedisClient *redis.Client
	Metrics     *prometheus.Registry
	Monitor     *cache.Monitor
	Registry    *cache.Registry
	Provider    *cache.Provider
	cron        *cron.Cron
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
		Metrics: prometheus.NewRegistry(),
	}

	app.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize components in order of dependency
	if err := app.initializeRedis(); err != nil {
		// The remote tier is optional; caches degrade to memory-only
		app.Logger.Warn("Redis initialization failed, running caches memory-only",
			logging.Field{Key: "error", Value: err.Error()})
	}

	app.initializeCaches()
	app.initializeScheduler()

	return app, nil
}

func (app *App) initializeCaches() {
	if app.Config.Cache.Monitor.Enabled {
		app.Monitor = cache.NewMonitor(0, app.Metrics, app.Logger)
	}

	app.Registry = cache.NewRegistry(app.Config.Cache, app.RedisClient, app.Monitor, app.Logger)
	app.Provider = cache.NewProvider(app.Registry, app.Config.Cache.TTL)

	topology := "memory-only"
	if app.RedisClient != nil {
		if app.Config.Cache.UseMultiLevel {
			topology = "tiered"
		} else {
			topology = "remote-only"
		}
	}
	app.Logger.Info("Cache subsystem initialized",
		logging.Field{Key: "topology", Value: topology},
		logging.Field{Key: "monitoring", Value: app.Config.Cache.Monitor.Enabled},
	)
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.cron != nil {
		app.cron.Stop()
	}
	if app.Registry != nil {
		if err := app.Registry.CloseAll(); err != nil {
			app.Logger.Warn("Error closing cache instances",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
