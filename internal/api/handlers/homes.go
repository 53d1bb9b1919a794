package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swapbnb/exchange-coordinator/internal/api/httpx"
	"github.com/swapbnb/exchange-coordinator/internal/services"
)

type HomeHandler struct {
	Homes *services.HomeService
}

func NewHomeHandler(hs *services.HomeService) *HomeHandler { return &HomeHandler{Homes: hs} }

func (h *HomeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.HomeInput
	if !decode(w, r, &req) {
		return
	}
	home, err := h.Homes.Create(r.Context(), actor(r), req)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, home)
}

// List returns every home, or only the caller's with ?mine=true.
func (h *HomeHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("mine") == "true" {
		homes, err := h.Homes.ListByOwner(r.Context(), actor(r))
		if err != nil {
			httpx.WriteAppError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, homes)
		return
	}
	limit, offset := paging(r)
	homes, err := h.Homes.List(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, homes)
}

func (h *HomeHandler) Get(w http.ResponseWriter, r *http.Request) {
	home, err := h.Homes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, home)
}
