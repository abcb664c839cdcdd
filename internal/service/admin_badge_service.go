package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fanlore/backend/internal/model"
	"github.com/fanlore/backend/internal/repository"
)

var (
	// ErrBadgeNotAwardable is returned for manual awards of badges the
	// catalog does not allow to be manually awarded, or inactive badges.
	ErrBadgeNotAwardable = errors.New("badge not manually awardable")
	// ErrAlreadyGranted is returned when a manual award would violate the
	// at-most-one rule for the badge's kind.
	ErrAlreadyGranted = errors.New("badge already granted")
)

// AwardRequest is a manual badge award by an admin.
type AwardRequest struct {
	UserID          string
	BadgeID         string
	AwardedByUserID string
	Reason          string
	// ExpiresAt applies to custom badges only. Active-supporter awards always
	// get the fixed 365-day expiry regardless of this value.
	ExpiresAt *time.Time
}

// AdminBadgeService provides the admin-facing badge operations: manual
// award, revoke, catalog and per-user reads, and statistics.
type AdminBadgeService interface {
	AwardBadge(ctx context.Context, req AwardRequest) (*model.UserBadge, error)
	RevokeBadge(ctx context.Context, grantID, revokedByUserID, reason string) error
	ListBadges(ctx context.Context) ([]*model.Badge, error)
	ListUserBadges(ctx context.Context, userID string) ([]*model.UserBadge, error)
	Stats(ctx context.Context) (*BadgeStatsReport, error)
}

// BadgeStatsReport aggregates grant and donation statistics for the admin UI.
type BadgeStatsReport struct {
	Badges     []*model.BadgeStats          `json:"badges"`
	Donations  []*model.DonationStatusCount `json:"donations"`
	Unresolved int                          `json:"unresolved_donations"`
}

type adminBadgeService struct {
	badgeRepo    repository.BadgeRepository
	grantRepo    repository.UserBadgeRepository
	userRepo     repository.UserRepository
	donationRepo repository.DonationRepository
	newID        IDGenerator
	now          func() time.Time
}

// NewAdminBadgeService creates an AdminBadgeService.
func NewAdminBadgeService(badgeRepo repository.BadgeRepository, grantRepo repository.UserBadgeRepository, userRepo repository.UserRepository, donationRepo repository.DonationRepository, newID IDGenerator) AdminBadgeService {
	return &adminBadgeService{
		badgeRepo:    badgeRepo,
		grantRepo:    grantRepo,
		userRepo:     userRepo,
		donationRepo: donationRepo,
		newID:        newID,
		now:          time.Now,
	}
}

func (s *adminBadgeService) AwardBadge(ctx context.Context, req AwardRequest) (*model.UserBadge, error) {
	if _, err := s.userRepo.FindByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("target user: %w", err)
	}
	badge, err := s.badgeRepo.GetByID(ctx, req.BadgeID)
	if err != nil {
		return nil, fmt.Errorf("badge: %w", err)
	}
	if !badge.IsActive || !badge.IsManuallyAwardable {
		return nil, ErrBadgeNotAwardable
	}

	now := s.now()
	grant := &model.UserBadge{
		ID:              s.newID(),
		UserID:          req.UserID,
		BadgeID:         badge.ID,
		Kind:            badge.Kind,
		AwardedAt:       now,
		Reason:          req.Reason,
		AwardedByUserID: &req.AwardedByUserID,
		Metadata:        map[string]any{"manual": true},
	}

	switch badge.Kind {
	case model.BadgeKindSupporter:
		year := now.Year()
		grant.Year = &year
		if err := s.grantRepo.Insert(ctx, grant); err != nil {
			return nil, awardErr(err)
		}
	case model.BadgeKindActiveSupporter:
		// Fixed expiry regardless of the caller's value; renewal replaces the
		// existing row, same as the donation-driven path.
		expiresAt := now.Add(activeSupporterTTL)
		grant.ExpiresAt = &expiresAt
		if err := s.grantRepo.UpsertActiveSupporter(ctx, grant); err != nil {
			return nil, err
		}
	case model.BadgeKindSponsor:
		if err := s.grantRepo.Insert(ctx, grant); err != nil {
			return nil, awardErr(err)
		}
	case model.BadgeKindCustom:
		// Custom badges may be re-awarded after revocation; only an active
		// grant blocks a new one. Not a concurrent hot path, so an
		// application check suffices here.
		active, err := s.grantRepo.ExistsActive(ctx, req.UserID, badge.ID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, ErrAlreadyGranted
		}
		grant.ExpiresAt = req.ExpiresAt
		if err := s.grantRepo.Insert(ctx, grant); err != nil {
			return nil, awardErr(err)
		}
	default:
		return nil, fmt.Errorf("unknown badge kind %q", badge.Kind)
	}
	return grant, nil
}

func awardErr(err error) error {
	if isDuplicate(err) {
		return ErrAlreadyGranted
	}
	return err
}

func (s *adminBadgeService) RevokeBadge(ctx context.Context, grantID, revokedByUserID, reason string) error {
	return s.grantRepo.Revoke(ctx, grantID, revokedByUserID, reason, s.now())
}

func (s *adminBadgeService) ListBadges(ctx context.Context) ([]*model.Badge, error) {
	return s.badgeRepo.List(ctx)
}

func (s *adminBadgeService) ListUserBadges(ctx context.Context, userID string) ([]*model.UserBadge, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.grantRepo.ListActiveByUser(ctx, userID)
}

func (s *adminBadgeService) Stats(ctx context.Context) (*BadgeStatsReport, error) {
	badges, err := s.grantRepo.StatsByBadge(ctx)
	if err != nil {
		return nil, err
	}
	donations, err := s.donationRepo.StatsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	unresolved, err := s.donationRepo.CountUnresolved(ctx)
	if err != nil {
		return nil, err
	}
	return &BadgeStatsReport{Badges: badges, Donations: donations, Unresolved: unresolved}, nil
}
