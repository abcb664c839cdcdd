package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fanlore/backend/internal/model"
	"github.com/fanlore/backend/internal/repository"
)

// ErrInvalidStatusChange is returned for admin status transitions the
// donation state machine does not allow.
var ErrInvalidStatusChange = errors.New("invalid status transition")

// AdminDonationService is the manual reconciliation path: it assigns
// donations that could not be auto-matched and completes the admin-only
// status transitions.
type AdminDonationService interface {
	// AssignDonation sets the owner, completes the donation and runs the
	// entitlement engine, unless entitlements were already processed — a
	// repeated call is a no-op on entitlements. Donations in a terminal
	// status (failed, refunded) are rejected with ErrInvalidStatusChange.
	AssignDonation(ctx context.Context, donationID, targetUserID, adminUserID string) (*model.Donation, error)
	// ListUnresolved returns the reconciliation queue, oldest first.
	ListUnresolved(ctx context.Context, limit, offset int) ([]*model.Donation, error)
	// UpdateStatus applies pending→failed or completed→refunded.
	UpdateStatus(ctx context.Context, donationID string, status model.DonationStatus) (*model.Donation, error)
}

type adminDonationService struct {
	donationRepo repository.DonationRepository
	userRepo     repository.UserRepository
	entitlements EntitlementService
}

// NewAdminDonationService creates an AdminDonationService.
func NewAdminDonationService(donationRepo repository.DonationRepository, userRepo repository.UserRepository, entitlements EntitlementService) AdminDonationService {
	return &adminDonationService{
		donationRepo: donationRepo,
		userRepo:     userRepo,
		entitlements: entitlements,
	}
}

func (s *adminDonationService) AssignDonation(ctx context.Context, donationID, targetUserID, adminUserID string) (*model.Donation, error) {
	if _, err := s.userRepo.FindByID(ctx, targetUserID); err != nil {
		return nil, fmt.Errorf("target user: %w", err)
	}
	d, err := s.donationRepo.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	// failed/refunded are terminal; assignment must not resurrect them to
	// completed. Re-assigning a completed donation stays allowed (idempotent
	// on entitlements via the processed flag).
	if d.Status != model.DonationPending && d.Status != model.DonationCompleted {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, d.Status, model.DonationCompleted)
	}

	note := fmt.Sprintf("assigned to user %s by admin %s", targetUserID, adminUserID)
	if err := s.donationRepo.AssignOwner(ctx, donationID, targetUserID, note); err != nil {
		return nil, err
	}
	d.OwnerUserID = &targetUserID
	d.Status = model.DonationCompleted

	// Already-processed donations are a no-op here: re-running the action
	// must not double-grant.
	if !d.EntitlementsProcessed {
		if err := s.entitlements.ProcessDonation(ctx, d); err != nil {
			// Donation stays assigned; entitlements_processed stays false so
			// the engine can be retried.
			slog.Error("entitlement processing failed after reconciliation",
				"donation_id", d.ID, "error", err)
		} else {
			d.EntitlementsProcessed = true
		}
	}
	return s.donationRepo.GetByID(ctx, donationID)
}

func (s *adminDonationService) ListUnresolved(ctx context.Context, limit, offset int) ([]*model.Donation, error) {
	return s.donationRepo.ListUnresolved(ctx, limit, offset)
}

func (s *adminDonationService) UpdateStatus(ctx context.Context, donationID string, status model.DonationStatus) (*model.Donation, error) {
	d, err := s.donationRepo.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}

	allowed := false
	switch status {
	case model.DonationFailed:
		allowed = d.Status == model.DonationPending
	case model.DonationRefunded:
		allowed = d.Status == model.DonationCompleted
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, d.Status, status)
	}

	if err := s.donationRepo.UpdateStatus(ctx, donationID, status); err != nil {
		return nil, err
	}
	d.Status = status
	return d, nil
}
