package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fanlore/backend/internal/model"
	"github.com/shopspring/decimal"
)

// sponsorThreshold is the lifetime completed-donation sum that triggers the
// one-time sponsor grant. Compared as an exact decimal; a float sum could
// miss the boundary.
var sponsorThreshold = decimal.RequireFromString("25.00")

// activeSupporterTTL is the lifetime of an active-supporter grant, counted
// from the award time. Caller-supplied expiries are ignored for this kind.
const activeSupporterTTL = 365 * 24 * time.Hour

// ErrDonationNotEligible is returned when the engine is invoked for a
// donation that is not completed or has no resolved owner.
var ErrDonationNotEligible = errors.New("donation not eligible for entitlements")

// EntitlementDonationRepo は EntitlementService が必要とする寄付操作のミニマムインターフェース
type EntitlementDonationRepo interface {
	MarkEntitlementsProcessed(ctx context.Context, id string) error
	SumCompletedByUser(ctx context.Context, userID string) (decimal.Decimal, error)
}

// EntitlementBadgeRepo はバッジカタログ参照のミニマムインターフェース
type EntitlementBadgeRepo interface {
	GetByKind(ctx context.Context, kind model.BadgeKind) (*model.Badge, error)
}

// EntitlementGrantRepo はバッジ付与レコード操作のミニマムインターフェース
type EntitlementGrantRepo interface {
	Insert(ctx context.Context, g *model.UserBadge) error
	UpsertActiveSupporter(ctx context.Context, g *model.UserBadge) error
	Exists(ctx context.Context, userID, badgeID string) (bool, error)
}

// EntitlementService derives badge grants from completed donations.
//
// The three steps (supporter, active supporter, sponsor) are independent: a
// failure in one never blocks the others, and the whole operation is safe to
// re-invoke for the same donation. entitlements_processed flips true only
// when every step succeeded, so a partial failure stays retryable.
type EntitlementService interface {
	ProcessDonation(ctx context.Context, d *model.Donation) error
}

// IDGenerator issues new grant IDs. Swappable in tests.
type IDGenerator func() string

type entitlementService struct {
	donationRepo EntitlementDonationRepo
	badgeRepo    EntitlementBadgeRepo
	grantRepo    EntitlementGrantRepo
	newID        IDGenerator
	now          func() time.Time
}

// NewEntitlementService creates an EntitlementService.
func NewEntitlementService(donationRepo EntitlementDonationRepo, badgeRepo EntitlementBadgeRepo, grantRepo EntitlementGrantRepo, newID IDGenerator) EntitlementService {
	return &entitlementService{
		donationRepo: donationRepo,
		badgeRepo:    badgeRepo,
		grantRepo:    grantRepo,
		newID:        newID,
		now:          time.Now,
	}
}

func (s *entitlementService) ProcessDonation(ctx context.Context, d *model.Donation) error {
	if d.Status != model.DonationCompleted || !d.IsResolved() {
		return ErrDonationNotEligible
	}
	userID := *d.OwnerUserID

	steps := []struct {
		name string
		run  func(context.Context, string, *model.Donation) error
	}{
		{"supporter", s.grantSupporter},
		{"active_supporter", s.grantActiveSupporter},
		{"sponsor", s.grantSponsor},
	}

	var errs []error
	for _, step := range steps {
		if err := step.run(ctx, userID, d); err != nil {
			slog.Error("entitlement step failed",
				"step", step.name, "donation_id", d.ID, "user_id", userID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	if len(errs) > 0 {
		// entitlements_processed stays false so a retry completes the rest.
		return errors.Join(errs...)
	}
	return s.donationRepo.MarkEntitlementsProcessed(ctx, d.ID)
}

// badgeForKind fetches the catalog badge for a derived kind and verifies the
// catalog row is sane. The kind set is closed; anything else is an error.
func (s *entitlementService) badgeForKind(ctx context.Context, kind model.BadgeKind) (*model.Badge, error) {
	switch kind {
	case model.BadgeKindSupporter, model.BadgeKindActiveSupporter, model.BadgeKindSponsor:
	case model.BadgeKindCustom:
		return nil, fmt.Errorf("kind %q is not derivable from donations", kind)
	default:
		return nil, fmt.Errorf("unknown badge kind %q", kind)
	}
	badge, err := s.badgeRepo.GetByKind(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("badge catalog lookup for %q: %w", kind, err)
	}
	return badge, nil
}

// grantSupporter awards the permanent supporter badge, at most once per
// calendar year of the donation. The (user, badge, year) unique index makes
// the insert idempotent under replays and concurrency.
func (s *entitlementService) grantSupporter(ctx context.Context, userID string, d *model.Donation) error {
	badge, err := s.badgeForKind(ctx, model.BadgeKindSupporter)
	if err != nil {
		return err
	}
	if !badge.IsActive {
		return nil
	}

	year := d.OccurredAt.Year()
	grant := &model.UserBadge{
		ID:        s.newID(),
		UserID:    userID,
		BadgeID:   badge.ID,
		Kind:      model.BadgeKindSupporter,
		AwardedAt: s.now(),
		Year:      &year,
		Reason:    fmt.Sprintf("donation in %d", year),
		Metadata: map[string]any{
			"donation_id": d.ID,
			"amount":      d.Amount.String(),
			"currency":    d.Currency,
		},
	}
	if err := s.grantRepo.Insert(ctx, grant); err != nil && !isDuplicate(err) {
		return err
	}
	return nil
}

// grantActiveSupporter renews the time-bound badge on every completed
// donation. The single row per (user, badge) is replaced outright so the
// 365-day timer restarts from this award.
func (s *entitlementService) grantActiveSupporter(ctx context.Context, userID string, d *model.Donation) error {
	badge, err := s.badgeForKind(ctx, model.BadgeKindActiveSupporter)
	if err != nil {
		return err
	}
	if !badge.IsActive {
		return nil
	}

	now := s.now()
	expiresAt := now.Add(activeSupporterTTL)
	grant := &model.UserBadge{
		ID:        s.newID(),
		UserID:    userID,
		BadgeID:   badge.ID,
		Kind:      model.BadgeKindActiveSupporter,
		AwardedAt: now,
		ExpiresAt: &expiresAt,
		Reason:    "renewed by donation",
		Metadata: map[string]any{
			"donation_id": d.ID,
			"amount":      d.Amount.String(),
			"currency":    d.Currency,
		},
	}
	return s.grantRepo.UpsertActiveSupporter(ctx, grant)
}

// grantSponsor awards the one-time permanent badge when the lifetime sum of
// completed donations reaches the threshold. Once a sponsor row exists,
// active or revoked, it is never re-derived. Concurrent threshold crossings
// race on the (user, badge) unique index; the loser is a no-op.
func (s *entitlementService) grantSponsor(ctx context.Context, userID string, d *model.Donation) error {
	badge, err := s.badgeForKind(ctx, model.BadgeKindSponsor)
	if err != nil {
		return err
	}
	if !badge.IsActive {
		return nil
	}

	exists, err := s.grantRepo.Exists(ctx, userID, badge.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	total, err := s.donationRepo.SumCompletedByUser(ctx, userID)
	if err != nil {
		return err
	}
	if total.LessThan(sponsorThreshold) {
		return nil
	}

	grant := &model.UserBadge{
		ID:        s.newID(),
		UserID:    userID,
		BadgeID:   badge.ID,
		Kind:      model.BadgeKindSponsor,
		AwardedAt: s.now(),
		Reason:    fmt.Sprintf("lifetime donations reached %s", sponsorThreshold.StringFixed(2)),
		Metadata: map[string]any{
			"donation_id":    d.ID,
			"lifetime_total": total.String(),
		},
	}
	if err := s.grantRepo.Insert(ctx, grant); err != nil && !isDuplicate(err) {
		return err
	}
	return nil
}
