package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fremancer/fremancer/internal/httpx"
	"github.com/fremancer/fremancer/internal/services"
)

type PaymentHandler struct {
	Svc *services.PaymentService
}

func NewPaymentHandler(svc *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Svc: svc}
}

type attachSourceRequest struct {
	Token string `json:"token"`
}

// Attach: POST /api/payments – attach a tokenized card or bank account.
func (h *PaymentHandler) Attach(w http.ResponseWriter, r *http.Request) {
	var req attachSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	source, err := h.Svc.AttachSource(r.Context(), caller(r), req.Token)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, services.DisplaySource(*source))
}

// List: GET /api/payments
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Svc.ListSources(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]services.SourceDisplay, 0, len(sources))
	for _, src := range sources {
		out = append(out, services.DisplaySource(src))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Delete: DELETE /api/payments/{id}
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if sourceID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.DeleteSource(r.Context(), caller(r), sourceID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

type verifySourceRequest struct {
	Amounts []int64 `json:"amounts"`
}

// Verify: POST /api/payments/{id}/verify – confirm a bank account with
// its two micro-deposit amounts.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if sourceID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req verifySourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Svc.VerifySource(r.Context(), caller(r), sourceID, req.Amounts); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"verified": true})
}
