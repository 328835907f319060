package app

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeatlas/internal/handlers"
	"codeatlas/internal/middleware"
	"codeatlas/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes for the diagnostics API
func SetupRoutes(router *mux.Router, h *handlers.Handlers, metrics prometheus.Gatherer, limiter *ratelimit.Limiter) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)

	// Probes and exporter endpoints stay unthrottled so scrapers and
	// liveness checks never get a 429
	router.HandleFunc("/healthz", h.Healthz).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})).Methods("GET")

	api := router.PathPrefix("/api/caches").Subrouter()
	api.Use(ratelimit.Middleware(limiter))

	// Subsystem-wide endpoints, registered before the {name} routes so the
	// literal segments win
	api.HandleFunc("", h.GetCaches).Methods("GET")
	api.HandleFunc("/health", h.GetHealth).Methods("GET")
	api.HandleFunc("/metrics", h.GetMetrics).Methods("GET")
	api.HandleFunc("/logs", h.GetLogs).Methods("GET")
	api.HandleFunc("/errors", h.GetErrors).Methods("GET")
	api.HandleFunc("/reset", h.ResetStats).Methods("POST")
	api.HandleFunc("/clear", h.ClearAllCaches).Methods("POST")

	// Per-instance endpoints
	api.HandleFunc("/{name}/clear", h.ClearCache).Methods("POST")
	api.HandleFunc("/{name}/keys/{key}/exists", h.KeyExists).Methods("GET")
	api.HandleFunc("/{name}/keys/{key}", h.GetKey).Methods("GET")
	api.HandleFunc("/{name}/keys/{key}", h.SetKey).Methods("PUT")
	api.HandleFunc("/{name}/keys/{key}", h.DeleteKey).Methods("DELETE")
}
