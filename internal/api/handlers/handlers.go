package handlers

import (
	"net/http"
	"strconv"

	"github.com/swapbnb/exchange-coordinator/internal/api/httpx"
	"github.com/swapbnb/exchange-coordinator/internal/api/validate"
	"github.com/swapbnb/exchange-coordinator/internal/middleware"
)

// actor returns the authenticated user id; Auth guarantees it on every
// route that calls this.
func actor(r *http.Request) string {
	uid, _ := middleware.UserID(r.Context())
	return uid
}

// decode reads the body into v and runs its validate tags. It writes the
// error response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil {
		httpx.WriteAppError(w, r, err)
		return false
	}
	if err := validate.Struct(v).Err(); err != nil {
		httpx.WriteAppError(w, r, err)
		return false
	}
	return true
}

func paging(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	return limit, offset
}
