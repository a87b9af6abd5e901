package middleware

import (
	"net/http"

	"github.com/JonMunkholm/cardimport/internal/ratelimit"
)

// RateLimit rejects requests once the client IP has spent its budget in
// limiter. Rejected requests are handed to onLimited.
func RateLimit(limiter *ratelimit.KeyedRateLimiter, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(ClientIP(r)) {
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
