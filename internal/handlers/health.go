package handlers

import (
	"net/http"
	"time"

	"codeatlas/internal/cache"
)

type redisHealth struct {
	State   string      `json:"state"`
	Breaker interface{} `json:"breaker"`
}

// Healthz is the liveness probe
// @Summary Liveness probe
// @Description Always returns 200 while the process is up
// @Tags health
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// GetHealth returns the full cache health report
// @Summary Cache health report
// @Description Combines monitoring-derived health per cache with live canary probes per instance and the Redis connection state. Responds 503 when any component is critical.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Health report"
// @Failure 503 {object} map[string]interface{} "Health report with critical components"
// @Router /api/caches/health [get]
func (h *Handlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report := h.monitor.HealthReport()
	instances := h.registry.HealthCheck(ctx)

	status := report.Status
	for _, instance := range instances {
		if !instance.Healthy {
			status = cache.HealthCritical
			break
		}
	}

	var redisState *redisHealth
	if h.client != nil {
		redisState = &redisHealth{
			State:   h.client.State().String(),
			Breaker: h.client.BreakerStats(),
		}
	}

	code := http.StatusOK
	if status == cache.HealthCritical {
		code = http.StatusServiceUnavailable
	}

	h.respondJSON(w, code, map[string]interface{}{
		"status":       status,
		"caches":       report.Caches,
		"instances":    instances,
		"redis":        redisState,
		"version":      "1.0.0",
		"generated_at": time.Now(),
	})
}
