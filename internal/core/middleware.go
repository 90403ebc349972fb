package core

import (
	"net/http"
	"strconv"
	"time"
)

// Middleware gates an HTTP handler, typically one that reads hardware, so
// each key reaches next at most once per interval.
func (m *Manager) Middleware(
	keyFunc func(*http.Request) string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			decision, err := m.AllowDecision(key)
			if err != nil {
				http.Error(w, "gate error", http.StatusInternalServerError)
				return
			}

			if !decision.Allowed {
				if decision.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.FormatInt(durationCeilSeconds(decision.RetryAfter), 10))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func durationCeilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
