package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/card-service/internal/handler"
)

// Recovery turns a panicking handler into a 500 INTERNAL_ERROR. It sits
// outside the logging middleware, so it tags the record itself.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("handler panicked",
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			handler.RespondAppError(w, handler.ErrInternalError, nil)
		}()
		next.ServeHTTP(w, r)
	})
}
