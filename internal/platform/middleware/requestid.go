package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"vestry/pkg/requestcontext"
)

// RequestID assigns a request ID when the client did not send one and makes
// it available to handlers and services via requestcontext. The ID is echoed
// back so clients can correlate responses with server logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
