package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultSlowRequestMs applies when Timing is given no threshold.
const DefaultSlowRequestMs = 200

type recorder struct {
	http.ResponseWriter
	status int
}

func (rec *recorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Timing logs each API request: Debug normally, Warn at or above thresholdMs.
// Only /api/ paths are logged; static files and health checks are not.
func Timing(thresholdMs int) func(http.Handler) http.Handler {
	if thresholdMs <= 0 {
		thresholdMs = DefaultSlowRequestMs
	}
	slow := time.Duration(thresholdMs) * time.Millisecond

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			took := time.Since(start)

			level, msg := slog.LevelDebug, "request"
			if took >= slow {
				level, msg = slog.LevelWarn, "slow_request"
			}
			slog.Log(r.Context(), level, msg,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", took.Milliseconds(),
			)
		})
	}
}
