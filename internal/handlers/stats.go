package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"codeatlas/internal/cache"
	"codeatlas/internal/common/logging"
)

// Cache statistics and maintenance handlers

// GetCaches returns statistics for every registered cache instance
// @Summary List cache instances
// @Description Returns live statistics for every registered cache instance, including per-tier breakdowns for multi-level caches
// @Tags caches
// @Produce json
// @Success 200 {object} map[string]interface{} "Cache statistics"
// @Router /api/caches [get]
func (h *Handlers) GetCaches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names := h.registry.Names()

	stats := make([]cache.Stats, 0, len(names))
	for _, name := range names {
		store, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		stats = append(stats, store.Stats(ctx))
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"caches": stats,
		"count":  len(stats),
	})
}

// ClearAllCaches empties every registered cache instance
// @Summary Clear all caches
// @Description Empties every registered cache instance across all tiers
// @Tags caches
// @Produce json
// @Success 200 {object} map[string]interface{} "Clear outcome"
// @Router /api/caches/clear [post]
func (h *Handlers) ClearAllCaches(w http.ResponseWriter, r *http.Request) {
	ok := h.registry.ClearAll(r.Context())

	h.logger.Info("All caches cleared via API", logging.Field{Key: "complete", Value: ok})
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"cleared":  h.registry.Names(),
		"complete": ok,
	})
}

// ClearCache empties a single cache instance
// @Summary Clear one cache
// @Description Empties the named cache instance across all of its tiers
// @Tags caches
// @Produce json
// @Param name path string true "Cache name"
// @Success 200 {object} map[string]interface{} "Clear outcome"
// @Failure 404 {string} string "Cache not found"
// @Router /api/caches/{name}/clear [post]
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	store, ok := h.lookupStore(w, name)
	if !ok {
		return
	}

	cleared := store.Clear(r.Context())

	h.logger.Info("Cache cleared via API",
		logging.Field{Key: "cache", Value: name},
		logging.Field{Key: "complete", Value: cleared})
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"cache":    name,
		"complete": cleared,
	})
}

// ResetStats zeroes monitoring counters and operation logs
// @Summary Reset monitoring statistics
// @Description Zeroes hit/miss/error counters and drops buffered operation log entries, for all caches or a single one selected with ?name=
// @Tags caches
// @Produce json
// @Param name query string false "Cache name, resets everything when omitted"
// @Success 200 {object} map[string]interface{} "Reset outcome"
// @Router /api/caches/reset [post]
func (h *Handlers) ResetStats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	h.monitor.ResetStats(name)

	scope := name
	if scope == "" {
		scope = "all"
	}
	h.logger.Info("Cache statistics reset via API", logging.Field{Key: "scope", Value: scope})
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"reset": scope})
}
