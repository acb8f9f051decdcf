package middleware

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// Ledger writes: 2 req/s per user, burst 30.
const (
	ledgerWriteRPS   = 2
	ledgerWriteBurst = 30
)

var ledgerWriteLimiter = newKeyedLimiter(rate.Limit(ledgerWriteRPS), ledgerWriteBurst)

// LedgerWriteRateLimit limits mutating requests per authenticated user. It
// must run after RequireAuth; reads pass through.
func LedgerWriteRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(ledgerWriteBurst))
		if !ledgerWriteLimiter.Allow(userID) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeJSONError(w, http.StatusTooManyRequests, "Too many ledger updates. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
