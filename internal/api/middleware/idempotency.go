package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replayed"
	idempotencyPrefix       = "idempotency:"
	idempotencyLockDuration = 30 * time.Second
	maxIdempotencyKeyLength = 255
	anonymousSubject        = "-"
)

type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the stored response of an earlier request carrying the
// same Idempotency-Key. Requests without the header pass through untouched, as
// do all requests when client is nil. 5xx responses are not stored so the
// client may retry them.
func Idempotency(client *redis.Client, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "Idempotency")
	return func(next http.Handler) http.Handler {
		if client == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLength {
				writeIdempotencyError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Idempotency-Key is too long")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeIdempotencyError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "could not read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			redisKey := idempotencyRedisKey(r, key)
			fingerprint := fingerprintOf(body)

			pending, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})
			acquired, err := client.SetNX(ctx, redisKey, pending, idempotencyLockDuration).Result()
			if err != nil {
				logger.ErrorContext(ctx, "Idempotency store unavailable, processing without it", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !acquired {
				replay(w, r, client, redisKey, fingerprint, logger)
				return
			}

			var captured bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)

			completed := false
			defer func() {
				if completed && ww.Status() < http.StatusInternalServerError {
					record, _ := json.Marshal(storedResponse{
						Fingerprint: fingerprint,
						Done:        true,
						Status:      ww.Status(),
						ContentType: ww.Header().Get("Content-Type"),
						Body:        captured.Bytes(),
					})
					if err := client.Set(ctx, redisKey, record, ttl).Err(); err != nil {
						logger.ErrorContext(ctx, "Failed to store idempotent response", "error", err, "key", key)
					}
					return
				}
				if err := client.Del(ctx, redisKey).Err(); err != nil {
					logger.ErrorContext(ctx, "Failed to release idempotency key", "error", err, "key", key)
				}
			}()

			next.ServeHTTP(ww, r)
			completed = true
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, client *redis.Client, redisKey, fingerprint string, logger *slog.Logger) {
	raw, err := client.Get(r.Context(), redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		writeIdempotencyError(w, http.StatusConflict, "CONFLICT", "request with this Idempotency-Key is being retried, try again")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load idempotent response", "error", err)
		writeIdempotencyError(w, http.StatusServiceUnavailable, "INTERNAL", "idempotency store unavailable")
		return
	}

	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		logger.ErrorContext(r.Context(), "Corrupt idempotency record", "error", err, "key", redisKey)
		writeIdempotencyError(w, http.StatusInternalServerError, "INTERNAL", "An unexpected error occurred.")
		return
	}

	switch {
	case stored.Fingerprint != fingerprint:
		writeIdempotencyError(w, http.StatusConflict, "CONFLICT", "Idempotency-Key was already used with a different request body")
	case !stored.Done:
		writeIdempotencyError(w, http.StatusConflict, "CONFLICT", "a request with this Idempotency-Key is still in progress")
	default:
		logger.InfoContext(r.Context(), "Replaying idempotent response", "key", redisKey, "status", stored.Status)
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(IdempotentReplayHeader, "true")
		w.WriteHeader(stored.Status)
		w.Write(stored.Body)
	}
}

// idempotencyRedisKey scopes key to the caller, so two clients choosing the
// same key never see each other's responses.
func idempotencyRedisKey(r *http.Request, key string) string {
	subject := Subject(r.Context())
	if subject == "" {
		subject = anonymousSubject
	}
	return idempotencyPrefix + subject + ":" + r.Method + ":" + r.URL.Path + ":" + key
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func writeIdempotencyError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}
