package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
)

type APIError struct {
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// DecodeJSON reads a single JSON object and rejects unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.New(apperr.Validation, "malformed request body: %v", err)
	}
	return nil
}

type mapping struct {
	status int
	code   string
	hint   string
}

var kinds = map[apperr.Kind]mapping{
	apperr.Validation:           {http.StatusBadRequest, "validation_error", "fix the highlighted fields and try again"},
	apperr.Unauthorized:         {http.StatusForbidden, "unauthorized", "you are not allowed to do this on this exchange"},
	apperr.InvalidState:         {http.StatusConflict, "invalid_state", "the exchange has moved on; reload it and check the next step"},
	apperr.VerificationRequired: {http.StatusForbidden, "verification_required", "verify your identity, then confirm again"},
	apperr.PaymentRequired:      {http.StatusPaymentRequired, "payment_required", "pay the service fee or buy a credit, then confirm again"},
	apperr.NotFound:             {http.StatusNotFound, "not_found", "nothing exists at this address"},
	apperr.Conflict:             {http.StatusConflict, "conflict", "this is already done or clashes with existing data"},
	apperr.ExternalProvider:     {http.StatusBadGateway, "provider_unavailable", "a partner service is unavailable; try again in a moment"},
}

// WriteAppError maps err onto the HTTP error contract. Errors without a
// kind are logged and reported as a generic 500.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong on our side", nil)
		return
	}
	m, ok := kinds[ae.Kind]
	if !ok {
		m = mapping{http.StatusInternalServerError, "internal_error", "something went wrong on our side"}
	}
	body := APIError{
		Error:     ae.Msg,
		Code:      m.code,
		Details:   map[string]any{"hint": m.hint},
		Retryable: ae.Kind == apperr.ExternalProvider,
	}
	if ae.Msg == "" {
		body.Error = m.hint
	}
	if len(ae.Fields) > 0 {
		body.Details = map[string]any{"hint": m.hint, "fields": ae.Fields}
	}
	WriteJSON(w, m.status, body)
}
