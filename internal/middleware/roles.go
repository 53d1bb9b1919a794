package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/swapbnb/exchange-coordinator/internal/api/httpx"
)

// RequireRole admits actors holding any of roles. Mount it after Auth; a
// request with no actor in context is answered 401.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	want := strings.Join(roles, " or ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := Role(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "sign in first", nil)
				return
			}
			if !slices.Contains(roles, role) {
				uid, _ := UserID(r.Context())
				slog.WarnContext(r.Context(), "role denied", "user_id", uid, "role", role, "path", r.URL.Path)
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "this action needs the "+want+" role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
