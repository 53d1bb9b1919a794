package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/swapbnb/exchange-coordinator/internal/api/httpx"
	"github.com/swapbnb/exchange-coordinator/internal/provider"
	"github.com/swapbnb/exchange-coordinator/internal/services"
)

type WebhookHandler struct {
	Hooks  *services.Webhooks
	Secret string
}

func NewWebhookHandler(hooks *services.Webhooks, secret string) *WebhookHandler {
	return &WebhookHandler{Hooks: hooks, Secret: secret}
}

func (h *WebhookHandler) Payments(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, provider.NamePayments, h.Hooks.Payment)
}

func (h *WebhookHandler) Identity(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, provider.NameIdentity, h.Hooks.Identity)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, name string, apply func(context.Context, []byte) (services.WebhookResult, error)) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "could not read body", nil)
		return
	}
	if err := provider.Verify(h.Secret, body, r.Header.Get(provider.SignatureHeader)); err != nil {
		slog.WarnContext(r.Context(), "webhook signature rejected", "provider", name)
		httpx.WriteError(w, http.StatusUnauthorized, "bad_signature", "invalid webhook signature", nil)
		return
	}
	res, err := apply(r.Context(), body)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
