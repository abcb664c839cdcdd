package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fanlore/backend/internal/service"
)

// WebhookHandler は寄付 Webhook の HTTP ハンドラ
type WebhookHandler struct {
	svc service.WebhookService
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(svc service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Kofi handles POST /api/webhooks/kofi
// Ko-fi は at-least-once 配信のため、重複イベントは 200 で受理して前回結果を返す。
func (h *WebhookHandler) Kofi(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "read_body_failed"})
		return
	}

	result, err := h.svc.ProcessKofiWebhook(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadToken):
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_token"})
		case errors.Is(err, service.ErrInvalidPayload),
			errors.Is(err, service.ErrMissingField),
			errors.Is(err, service.ErrAmountOutOfRange),
			errors.Is(err, service.ErrStaleEvent),
			errors.Is(err, service.ErrUnknownEventType):
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_payload", "detail": err.Error()})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "webhook_processing_failed"})
		}
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"received":    true,
		"duplicate":   result.Duplicate,
		"donation_id": result.Donation.ID,
	})
}
