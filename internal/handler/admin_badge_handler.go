package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fanlore/backend/internal/model"
	"github.com/fanlore/backend/internal/repository"
	"github.com/fanlore/backend/internal/service"
	"github.com/fanlore/backend/pkg/auth"
)

// AdminBadgeHandler handles the admin badge endpoints.
type AdminBadgeHandler struct {
	badgeSvc   service.AdminBadgeService
	sweeperSvc service.SweeperService
}

// NewAdminBadgeHandler creates an AdminBadgeHandler.
func NewAdminBadgeHandler(badgeSvc service.AdminBadgeService, sweeperSvc service.SweeperService) *AdminBadgeHandler {
	return &AdminBadgeHandler{badgeSvc: badgeSvc, sweeperSvc: sweeperSvc}
}

func adminID(r *http.Request) string {
	id, _ := auth.AdminUserIDFromContext(r.Context())
	return id
}

// List handles GET /api/admin/badges
func (h *AdminBadgeHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	badges, err := h.badgeSvc.ListBadges(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "list_failed"})
		return
	}
	if badges == nil {
		badges = []*model.Badge{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"badges": badges})
}

type awardRequest struct {
	UserID    string     `json:"user_id"`
	BadgeID   string     `json:"badge_id"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Award handles POST /api/admin/badges/award
func (h *AdminBadgeHandler) Award(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_json"})
		return
	}
	if req.UserID == "" || req.BadgeID == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "user_id_and_badge_id_required"})
		return
	}

	grant, err := h.badgeSvc.AwardBadge(r.Context(), service.AwardRequest{
		UserID:          req.UserID,
		BadgeID:         req.BadgeID,
		AwardedByUserID: adminID(r),
		Reason:          req.Reason,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found"})
		case errors.Is(err, service.ErrBadgeNotAwardable):
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_awardable"})
		case errors.Is(err, service.ErrAlreadyGranted):
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "already_granted"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "award_failed"})
		}
		return
	}
	_ = json.NewEncoder(w).Encode(grant)
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

// Revoke handles POST /api/admin/grants/{id}/revoke
func (h *AdminBadgeHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id := r.PathValue("id")

	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_json"})
		return
	}

	if err := h.badgeSvc.RevokeBadge(r.Context(), id, adminID(r), req.Reason); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "revoke_failed"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// Sweep handles POST /api/admin/badges/sweep
func (h *AdminBadgeHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	result, err := h.sweeperSvc.Sweep(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "sweep_failed"})
		return
	}
	_ = json.NewEncoder(w).Encode(result)
}

// Stats handles GET /api/admin/badges/stats
func (h *AdminBadgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	report, err := h.badgeSvc.Stats(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "stats_failed"})
		return
	}
	_ = json.NewEncoder(w).Encode(report)
}

// UserBadges handles GET /api/users/{id}/badges (public read surface).
func (h *AdminBadgeHandler) UserBadges(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	grants, err := h.badgeSvc.ListUserBadges(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "list_failed"})
		return
	}
	if grants == nil {
		grants = []*model.UserBadge{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"badges": grants})
}
