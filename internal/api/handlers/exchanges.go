package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/swapbnb/exchange-coordinator/internal/api/httpx"
	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/services"
)

type ExchangeHandler struct {
	Svc *services.ExchangeService
	Now func() time.Time
}

func NewExchangeHandler(svc *services.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{Svc: svc, Now: time.Now}
}

type requestBody struct {
	HostHomeID      string `json:"host_home_id" validate:"required"`
	RequesterHomeID string `json:"requester_home_id" validate:"required"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Guests          int    `json:"guests" validate:"min=1"`
	Message         string `json:"message" validate:"required,max=2000"`
}

func (h *ExchangeHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req requestBody
	if !decode(w, r, &req) {
		return
	}
	// layouts are checked by the datetime tags above
	start, _ := time.Parse(time.DateOnly, req.StartDate)
	end, _ := time.Parse(time.DateOnly, req.EndDate)

	ex, err := h.Svc.RequestExchange(r.Context(), actor(r), services.RequestInput{
		HostHomeID:      req.HostHomeID,
		RequesterHomeID: req.RequesterHomeID,
		StartDate:       start,
		EndDate:         end,
		Guests:          req.Guests,
		Message:         req.Message,
	})
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusCreated, ex.ID)
}

func (h *ExchangeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	views, err := h.Svc.ListForUser(r.Context(), actor(r), limit, offset)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *ExchangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeView(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

// writeView answers with the exchange as the caller sees it, next step
// included.
func (h *ExchangeHandler) writeView(w http.ResponseWriter, r *http.Request, status int, id string) {
	v, err := h.Svc.Get(r.Context(), id, actor(r))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, status, v)
}

type respondBody struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

func (h *ExchangeHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondBody
	if !decode(w, r, &req) {
		return
	}
	ex, err := h.Svc.RespondToRequest(r.Context(), chi.URLParam(r, "id"), actor(r), req.Decision)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusOK, ex.ID)
}

func (h *ExchangeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ex, err := h.Svc.CancelExchange(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusOK, ex.ID)
}

type confirmResp struct {
	services.View
	BothConfirmed    bool `json:"both_confirmed"`
	AlreadyConfirmed bool `json:"already_confirmed"`
	CreditSpent      bool `json:"credit_spent"`
}

func (h *ExchangeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.ConfirmExchange(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	v, err := h.Svc.Get(r.Context(), res.Exchange.ID, actor(r))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, confirmResp{
		View:             v,
		BothConfirmed:    res.BothConfirmed,
		AlreadyConfirmed: res.AlreadyConfirmed,
		CreditSpent:      res.CreditSpent,
	})
}

func (h *ExchangeHandler) PaymentSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.StartPayment(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *ExchangeHandler) IdentitySession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.StartVerification(r.Context(), actor(r))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

// Complete is the admin close-out of a confirmed exchange after the stay.
func (h *ExchangeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httpx.WriteAppError(w, r, apperr.New(apperr.Validation, "missing exchange id"))
		return
	}
	ex, err := h.Svc.CompleteExchange(r.Context(), id, actor(r), h.Now())
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ex)
}
