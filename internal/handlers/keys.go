package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Single-key debug handlers. These exist for operators poking at live cache
// state; the platform services go through the typed facades instead.

type setKeyRequest struct {
	Value interface{} `json:"value"`
	// TTLSeconds follows the store convention: 0 means the cache default,
	// negative means never expire.
	TTLSeconds int64 `json:"ttl_seconds"`
}

// GetKey reads one key from a cache instance
// @Summary Read a cache key
// @Description Returns the cached value for a single key in the named cache
// @Tags keys
// @Produce json
// @Param name path string true "Cache name"
// @Param key path string true "Key"
// @Success 200 {object} map[string]interface{} "Cached value"
// @Failure 404 {string} string "Cache or key not found"
// @Router /api/caches/{name}/keys/{key} [get]
func (h *Handlers) GetKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	store, ok := h.lookupStore(w, vars["name"])
	if !ok {
		return
	}

	value, found := store.Get(r.Context(), vars["key"])
	if !found {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"cache": vars["name"],
		"key":   vars["key"],
		"value": value,
	})
}

// SetKey writes one key into a cache instance
// @Summary Write a cache key
// @Description Stores a JSON value under a single key, with an optional TTL override in seconds
// @Tags keys
// @Accept json
// @Produce json
// @Param name path string true "Cache name"
// @Param key path string true "Key"
// @Param body body setKeyRequest true "Value and optional TTL"
// @Success 200 {object} map[string]interface{} "Write outcome"
// @Failure 400 {string} string "Invalid request body"
// @Failure 404 {string} string "Cache not found"
// @Router /api/caches/{name}/keys/{key} [put]
func (h *Handlers) SetKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	store, ok := h.lookupStore(w, vars["name"])
	if !ok {
		return
	}

	var req setKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var ttl time.Duration
	switch {
	case req.TTLSeconds > 0:
		ttl = time.Duration(req.TTLSeconds) * time.Second
	case req.TTLSeconds < 0:
		ttl = -1
	}

	stored := store.Set(r.Context(), vars["key"], req.Value, ttl)

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"cache":  vars["name"],
		"key":    vars["key"],
		"stored": stored,
	})
}

// DeleteKey removes one key from a cache instance
// @Summary Delete a cache key
// @Description Removes a single key from the named cache across all tiers
// @Tags keys
// @Produce json
// @Param name path string true "Cache name"
// @Param key path string true "Key"
// @Success 200 {object} map[string]interface{} "Delete outcome"
// @Failure 404 {string} string "Cache not found"
// @Router /api/caches/{name}/keys/{key} [delete]
func (h *Handlers) DeleteKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	store, ok := h.lookupStore(w, vars["name"])
	if !ok {
		return
	}

	deleted := store.Del(r.Context(), vars["key"])

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"cache":   vars["name"],
		"key":     vars["key"],
		"deleted": deleted,
	})
}

// KeyExists checks presence of one key without touching hit statistics
// @Summary Check a cache key
// @Description Reports whether a key is present in the named cache without counting a hit or miss
// @Tags keys
// @Produce json
// @Param name path string true "Cache name"
// @Param key path string true "Key"
// @Success 200 {object} map[string]interface{} "Presence flag"
// @Failure 404 {string} string "Cache not found"
// @Router /api/caches/{name}/keys/{key}/exists [get]
func (h *Handlers) KeyExists(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	store, ok := h.lookupStore(w, vars["name"])
	if !ok {
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"cache":  vars["name"],
		"key":    vars["key"],
		"exists": store.Exists(r.Context(), vars["key"]),
	})
}
