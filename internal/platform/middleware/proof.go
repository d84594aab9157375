package middleware

import (
	"net/http"
	"strings"

	"vestry/pkg/requestcontext"
)

// AuthProof moves a bearer authorization proof from the Authorization header
// into the request context. Extraction never rejects: operations that need a
// proof verify it against the claimed principal themselves, and public reads
// ignore it entirely.
func AuthProof(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const bearerPrefix = "Bearer "
		if proof, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok && proof != "" {
			ctx := requestcontext.WithAuthProof(r.Context(), proof)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}
