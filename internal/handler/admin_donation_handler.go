package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fanlore/backend/internal/model"
	"github.com/fanlore/backend/internal/repository"
	"github.com/fanlore/backend/internal/service"
	"github.com/fanlore/backend/pkg/auth"
)

// AdminDonationHandler handles the admin reconciliation endpoints.
type AdminDonationHandler struct {
	svc service.AdminDonationService
}

// NewAdminDonationHandler creates an AdminDonationHandler.
func NewAdminDonationHandler(svc service.AdminDonationService) *AdminDonationHandler {
	return &AdminDonationHandler{svc: svc}
}

// ListUnresolved handles GET /api/admin/donations/unresolved
func (h *AdminDonationHandler) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	donations, err := h.svc.ListUnresolved(r.Context(), limit, offset)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "list_failed"})
		return
	}
	if donations == nil {
		donations = []*model.Donation{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"donations": donations})
}

type assignRequest struct {
	UserID string `json:"user_id"`
}

// Assign handles POST /api/admin/donations/{id}/assign
func (h *AdminDonationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id := r.PathValue("id")

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_json"})
		return
	}
	if req.UserID == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "user_id_required"})
		return
	}

	adminUserID, _ := auth.AdminUserIDFromContext(r.Context())
	d, err := h.svc.AssignDonation(r.Context(), id, req.UserID, adminUserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found"})
		case errors.Is(err, service.ErrInvalidStatusChange):
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_status_change"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "assign_failed"})
		}
		return
	}
	_ = json.NewEncoder(w).Encode(d)
}

type statusRequest struct {
	Status model.DonationStatus `json:"status"`
}

// UpdateStatus handles POST /api/admin/donations/{id}/status
// 許可される遷移は pending→failed と completed→refunded のみ。
func (h *AdminDonationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id := r.PathValue("id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_json"})
		return
	}

	d, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found"})
		case errors.Is(err, service.ErrInvalidStatusChange):
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_status_change"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "update_failed"})
		}
		return
	}
	_ = json.NewEncoder(w).Encode(d)
}
