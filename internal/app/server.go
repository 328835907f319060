package app

import (
	"context"

	"github.com/gorilla/mux"

	"codeatlas/internal/handlers"
	"codeatlas/internal/ratelimit"
	"codeatlas/internal/server"
)

// RunServer builds the HTTP server with all handlers configured
func (app *App) RunServer() *server.Server {
	h := handlers.New(app.Registry, app.Monitor, app.RedisClient, app.Logger)

	limiter := ratelimit.New(ratelimit.Config{
		Enabled:           app.Config.RateLimit.Enabled,
		RequestsPerSecond: app.Config.RateLimit.RequestsPerSecond,
		Burst:             app.Config.RateLimit.Burst,
	})

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Metrics, limiter)

	return server.New(router, app.Config.Port, app.Logger)
}

// Shutdown stops the background jobs and waits for in-flight ones to finish
func (app *App) Shutdown(ctx context.Context) error {
	if app.cron != nil {
		stopCtx := app.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
