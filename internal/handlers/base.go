package handlers

import (
	"encoding/json"
	"net/http"

	"codeatlas/internal/cache"
	"codeatlas/internal/common/logging"
	"codeatlas/internal/redis"
)

// Handlers exposes the cache diagnostics API. The redis client may be nil
// when the process runs memory-only; health reporting degrades accordingly.
type Handlers struct {
	registry *cache.Registry
	monitor  *cache.Monitor
	client   *redis.Client
	logger   logging.Logger
}

func New(registry *cache.Registry, monitor *cache.Monitor, client *redis.Client, logger logging.Logger) *Handlers {
	return &Handlers{
		registry: registry,
		monitor:  monitor,
		client:   client,
		logger:   logger,
	}
}

// respondJSON writes v with the given status. Encoding failures are logged
// rather than surfaced; the status line has already been sent.
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

// lookupStore resolves a cache instance by name, writing a 404 when the
// name is unknown.
func (h *Handlers) lookupStore(w http.ResponseWriter, name string) (cache.Store, bool) {
	store, ok := h.registry.Get(name)
	if !ok {
		http.Error(w, "Cache not found", http.StatusNotFound)
		return nil, false
	}
	return store, true
}
