package middleware

import (
	"net/http"
	"time"

	"vestry/pkg/requestcontext"
)

// RequestTime captures one timestamp at the start of the request. Domain
// timestamps and vesting math read it back via requestcontext.Now, so a
// single request observes one consistent instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
