package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/httpx"
	"github.com/fremancer/fremancer/internal/services"
)

// WebhookHandler receives processor event notifications. Only charge
// events carry information we track; everything else is acknowledged and
// dropped.
type WebhookHandler struct {
	Svc *services.InvoiceService
}

func NewWebhookHandler(svc *services.InvoiceService) *WebhookHandler {
	return &WebhookHandler{Svc: svc}
}

type webhookEvent struct {
	Object struct {
		Object string `json:"object"`
		ID     string `json:"id"`
		Paid   bool   `json:"paid"`
		Status string `json:"status"`
	} `json:"object"`
}

// Handle: POST /webhook
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if event.Object.Object != "charge" || event.Object.ID == "" {
		httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	err := h.Svc.ApplyChargeNotification(r.Context(), event.Object.ID, event.Object.Paid, event.Object.Status)
	if err != nil {
		// A charge we never issued is not an error worth retrying.
		if apperr.Is(err, apperr.KindNotFound) {
			slog.Warn("webhook charge unmatched", "charge_id", event.Object.ID)
			httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
