// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"expenses/internal/log"
)

// Middleware recovers from panics in next, logs the stack and calls
// onPanic to write the response. http.ErrAbortHandler is re-raised.
func Middleware(onPanic func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.ErrorContext(r.Context(), "Panic recovered",
					log.FieldComponent, log.ComponentHTTP,
					log.FieldMethod, r.Method,
					log.FieldPath, r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				onPanic(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
