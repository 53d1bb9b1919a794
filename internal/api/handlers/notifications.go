package handlers

import (
	"context"
	"net/http"

	"github.com/swapbnb/exchange-coordinator/internal/api/httpx"
	"github.com/swapbnb/exchange-coordinator/internal/models"
)

type Inbox interface {
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

type NotificationHandler struct {
	Inbox Inbox
}

func NewNotificationHandler(in Inbox) *NotificationHandler { return &NotificationHandler{Inbox: in} }

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := paging(r)
	if limit == 0 || limit > 100 {
		limit = 50
	}
	ns, err := h.Inbox.List(r.Context(), actor(r), limit)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ns)
}
