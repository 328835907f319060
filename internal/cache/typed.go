package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetTyped reads key from store and returns the value as T. Values that
// crossed the remote tier come back as generic JSON shapes, so a direct
// type assertion is tried first and a JSON round trip is used as fallback.
// A value that cannot be shaped into T is reported as a miss.
func GetTyped[T any](ctx context.Context, store Store, key string) (T, bool) {
	var zero T

	raw, found := store.Get(ctx, key)
	if !found {
		return zero, false
	}

	if typed, ok := raw.(T); ok {
		return typed, true
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false
	}
	return out, true
}

// SetTyped stores value under key. It only pins the value's type at the
// call site, storage behaves exactly like Store.Set.
func SetTyped[T any](ctx context.Context, store Store, key string, value T, ttl time.Duration) bool {
	return store.Set(ctx, key, value, ttl)
}
