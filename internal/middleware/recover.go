package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/swapbnb/exchange-coordinator/internal/api/httpx"
	"github.com/swapbnb/exchange-coordinator/internal/metrics"
)

// Recover turns a handler panic into a 500. http.ErrAbortHandler is passed
// through so net/http can drop the connection as intended.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			metrics.PanicsTotal.Inc()
			slog.ErrorContext(r.Context(), "handler panic",
				"err", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", RequestIDFrom(r.Context()),
				"stack", string(debug.Stack()),
			)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong on our side; try again", nil)
		}()
		next.ServeHTTP(w, r)
	})
}
