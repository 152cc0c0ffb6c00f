package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/josh-kwaku/card-service/internal/auth"
	"github.com/josh-kwaku/card-service/internal/handler"
	"github.com/josh-kwaku/card-service/internal/logging"
	"github.com/josh-kwaku/card-service/internal/repository"
)

type IdempotencyRepository interface {
	Reserve(ctx context.Context, entry *repository.IdempotencyCacheEntry) (bool, error)
	Get(ctx context.Context, key, clientID string) (*repository.IdempotencyCacheEntry, error)
	Complete(ctx context.Context, entry *repository.IdempotencyCacheEntry) error
	Release(ctx context.Context, key, clientID string) error
}

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	maxBodyBytes      = 1 << 20

	// inFlightTTL bounds how long a reservation outlives a process that
	// died while serving it.
	inFlightTTL = time.Minute
)

// Idempotency replays the stored response for a repeated Idempotency-Key
// from the same client. The key is bound to method, path and body, so
// reusing it against another card is a conflict rather than a replay. The
// key is reserved before the handler runs; a duplicate arriving while the
// first request is still in flight gets 409 instead of running twice.
// Safe methods pass straight through.
func Idempotency(repo IdempotencyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				handler.RespondAppError(w, handler.ErrMissingIdempotencyKey, nil)
				return
			}
			clientID, ok := auth.ClientIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			log := logging.FromContext(r.Context()).With("idempotency_key", key)

			now := time.Now().UTC()
			entry := &repository.IdempotencyCacheEntry{
				Key:         key,
				ClientID:    clientID,
				RequestHash: requestFingerprint(r.Method, r.URL.Path, body),
				CreatedAt:   now,
				ExpiresAt:   now.Add(inFlightTTL),
			}

			reserved, err := repo.Reserve(r.Context(), entry)
			if err != nil {
				log.Error("idempotency key reservation failed", "error", err)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
				return
			}
			if !reserved {
				respondHeld(w, r, repo, entry, log)
				return
			}

			// Anything short of a stored response, a panic included, gives
			// the key back.
			stored := false
			defer func() {
				if stored {
					return
				}
				if err := repo.Release(context.WithoutCancel(r.Context()), key, clientID); err != nil {
					log.Error("idempotency key release failed", "error", err)
				}
			}()

			rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// 5xx answers are left out so the same key can be retried once
			// the downstream service recovers.
			if rec.status >= http.StatusInternalServerError {
				return
			}

			entry.StatusCode = rec.status
			entry.ResponseBody = rec.body.Bytes()
			entry.ExpiresAt = time.Now().UTC().Add(idempotencyTTL)
			if err := repo.Complete(context.WithoutCancel(r.Context()), entry); err != nil {
				log.Error("idempotency cache store failed", "error", err)
				return
			}
			stored = true
		})
	}
}

// respondHeld answers a request whose key is already taken: a replay when
// the first request finished, a conflict otherwise.
func respondHeld(w http.ResponseWriter, r *http.Request, repo IdempotencyRepository, entry *repository.IdempotencyCacheEntry, log *slog.Logger) {
	cached, err := repo.Get(r.Context(), entry.Key, entry.ClientID)
	if err != nil {
		log.Error("idempotency cache lookup failed", "error", err)
		handler.RespondAppError(w, handler.ErrInternalError, nil)
		return
	}

	switch {
	case cached == nil:
		// Released or expired between the two calls; the client may retry.
		handler.RespondAppError(w, handler.ErrIdempotencyInProgress, nil)
	case cached.RequestHash != entry.RequestHash:
		handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
	case cached.InFlight():
		handler.RespondAppError(w, handler.ErrIdempotencyInProgress, nil)
	default:
		replay(w, cached)
	}
}

func replay(w http.ResponseWriter, cached *repository.IdempotencyCacheEntry) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	w.Write(cached.ResponseBody)
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	io.WriteString(h, method)
	io.WriteString(h, " ")
	io.WriteString(h, path)
	io.WriteString(h, "\n")
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// capturingWriter keeps a copy of what the handler wrote.
type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *capturingWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
