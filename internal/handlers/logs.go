package handlers

import (
	"net/http"
	"strconv"
)

// Monitoring read handlers

const defaultLogLimit = 100

// GetMetrics returns monitoring counters per cache
// @Summary Cache operation metrics
// @Description Returns hit/miss/error counters, rates and timing per cache, optionally narrowed with ?name=
// @Tags monitoring
// @Produce json
// @Param name query string false "Cache name"
// @Success 200 {object} map[string]interface{} "Metrics per cache"
// @Failure 404 {string} string "Cache has no recorded metrics"
// @Router /api/caches/metrics [get]
func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		metrics, ok := h.monitor.GetMetrics(name)
		if !ok {
			http.Error(w, "Cache has no recorded metrics", http.StatusNotFound)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]interface{}{name: metrics})
		return
	}

	h.respondJSON(w, http.StatusOK, h.monitor.AllMetrics())
}

// GetLogs returns recent cache operations
// @Summary Operation log
// @Description Returns buffered cache operations newest first, paginated with ?limit= and ?offset=
// @Tags monitoring
// @Produce json
// @Param limit query int false "Maximum entries to return, default 100"
// @Param offset query int false "Newest entries to skip"
// @Success 200 {object} map[string]interface{} "Operation log page"
// @Router /api/caches/logs [get]
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLogLimit)
	offset := queryInt(r, "offset", 0)

	logs := h.monitor.OperationLogs(limit, offset)

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"count":  len(logs),
		"limit":  limit,
		"offset": offset,
	})
}

// GetErrors returns error summaries per cache
// @Summary Error statistics
// @Description Returns error counts, rates and the most recent error per cache, optionally narrowed with ?name=
// @Tags monitoring
// @Produce json
// @Param name query string false "Cache name"
// @Success 200 {object} map[string]interface{} "Error summaries"
// @Router /api/caches/errors [get]
func (h *Handlers) GetErrors(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.monitor.ErrorStats(r.URL.Query().Get("name")))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
