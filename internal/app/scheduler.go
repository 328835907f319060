package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"codeatlas/internal/cache"
	"codeatlas/internal/common/logging"
	"codeatlas/internal/common/utils"
)

const healthProbeTimeout = 15 * time.Second

// initializeScheduler starts the background observability jobs: a periodic
// metrics snapshot in the logs and a canary health probe over every live
// cache instance.
func (app *App) initializeScheduler() {
	interval := app.Config.Cache.Monitor.MetricsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	spec := "@every " + interval.String()

	app.cron = cron.New()
	if _, err := app.cron.AddFunc(spec, app.logMetricsSnapshot); err != nil {
		app.Logger.Error("Failed to schedule metrics snapshot", err)
	}
	if _, err := app.cron.AddFunc(spec, app.probeCacheHealth); err != nil {
		app.Logger.Error("Failed to schedule health probe", err)
	}
	app.cron.Start()

	app.Logger.Info("Observability scheduler started", logging.Field{Key: "interval", Value: utils.FormatDuration(interval)})
}

func (app *App) logMetricsSnapshot() {
	for name, m := range app.Monitor.AllMetrics() {
		app.Logger.Info("Cache metrics snapshot",
			logging.Field{Key: "cache", Value: name},
			logging.Field{Key: "hits", Value: m.Hits},
			logging.Field{Key: "misses", Value: m.Misses},
			logging.Field{Key: "hit_rate", Value: m.HitRate},
			logging.Field{Key: "errors", Value: m.Errors},
			logging.Field{Key: "total_operations", Value: m.TotalOperations},
			logging.Field{Key: "avg_duration_ms", Value: m.AvgDurationMs},
		)
	}
}

func (app *App) probeCacheHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	for name, instance := range app.Registry.HealthCheck(ctx) {
		if !instance.Healthy {
			app.Logger.Warn("Cache instance unhealthy",
				logging.Field{Key: "cache", Value: name},
				logging.Field{Key: "detail", Value: instance.Detail},
			)
		}
	}

	if report := app.Monitor.HealthReport(); report.Status != cache.HealthHealthy {
		app.Logger.Warn("Cache health degraded", logging.Field{Key: "status", Value: string(report.Status)})
	}
}
