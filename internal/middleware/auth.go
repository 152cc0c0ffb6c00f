package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/card-service/internal/auth"
	"github.com/josh-kwaku/card-service/internal/handler"
)

// Auth requires a bearer token issued to a known client.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithClientID(r.Context(), claims.ClientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
