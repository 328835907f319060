package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"codeatlas/internal/common/logging"
)

// RequestIDHeader is the header used to propagate correlation IDs between
// services. Inbound values are trusted as-is so a caller can stitch its own
// trace through our logs.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation ID. The ID is stored on the
// request context under logging.RequestIDKey, which the logger picks up
// automatically, and echoed back to the caller in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), logging.RequestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
