package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kweku/susu/internal/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs every request with method, path, principal, status, and
// duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"principal", auth.PrincipalFromContext(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if rec.status >= 500 {
			slog.Error("request failed", attrs...)
		} else if rec.status >= 400 {
			slog.Warn("request rejected", attrs...)
		} else {
			slog.Info("request ok", attrs...)
		}
	})
}
