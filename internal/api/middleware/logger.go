package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// StructuredLogger writes one entry per request. Ledger rejections surface as
// WARN, server faults as ERROR.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	logger = logger.With("component", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			defer func() {
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"latency_ms", float64(time.Since(started).Microseconds()) / 1000.0,
					"bytes_written", ww.BytesWritten(),
					"remote_addr", r.RemoteAddr,
					"request_id", middleware.GetReqID(r.Context()),
				}
				if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
					attrs = append(attrs, "idempotency_key", key,
						"idempotent_replay", ww.Header().Get(IdempotentReplayHeader) == "true")
				}
				logger.Log(r.Context(), levelForStatus(ww.Status()), "Served request", attrs...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
