package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fanlore/backend/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Donation amount bounds, inclusive, in the donation's own currency.
var (
	minDonationAmount = decimal.NewFromInt(1)
	maxDonationAmount = decimal.NewFromInt(10000)
)

// WebhookConfig is the explicit configuration the ingestor needs. It is
// passed in at construction; the service never reads ambient state.
type WebhookConfig struct {
	// VerificationToken is the Ko-fi shared secret.
	VerificationToken string
	// Freshness is how far in the past an event timestamp may lie.
	Freshness time.Duration
	// ClockSkew is the forward tolerance for remote clock drift.
	ClockSkew time.Duration
}

// kofiPayload is the fixed inbound webhook contract.
type kofiPayload struct {
	VerificationToken string          `json:"verification_token"`
	MessageID         string          `json:"message_id"`
	Timestamp         time.Time       `json:"timestamp"`
	Type              string          `json:"type"` // "Donation" or "Subscription"
	FromName          string          `json:"from_name"`
	Email             string          `json:"email"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	IsPublic          *bool           `json:"is_public"`
}

// IngestResult is the outcome of a webhook delivery.
type IngestResult struct {
	Donation *model.Donation
	// Duplicate is true when the event was already recorded; the prior record
	// is returned and nothing was written.
	Duplicate bool
	// EntitlementsRun is true when the entitlement engine ran for this event.
	EntitlementsRun bool
}

// WebhookIngestDonationRepo は Ingestor が必要とする寄付台帳操作のミニマムインターフェース
type WebhookIngestDonationRepo interface {
	Create(ctx context.Context, d *model.Donation) error
	GetByProviderExternalID(ctx context.Context, provider model.DonationProvider, externalID string) (*model.Donation, error)
}

// WebhookService validates, deduplicates and persists inbound donation
// events, then hands completed resolved donations to the entitlement engine.
type WebhookService interface {
	ProcessKofiWebhook(ctx context.Context, payload []byte) (*IngestResult, error)
}

type webhookService struct {
	cfg          WebhookConfig
	donationRepo WebhookIngestDonationRepo
	resolver     DonorResolver
	entitlements EntitlementService
	now          func() time.Time
}

// NewWebhookService creates a WebhookService.
func NewWebhookService(cfg WebhookConfig, donationRepo WebhookIngestDonationRepo, resolver DonorResolver, entitlements EntitlementService) WebhookService {
	return &webhookService{
		cfg:          cfg,
		donationRepo: donationRepo,
		resolver:     resolver,
		entitlements: entitlements,
		now:          time.Now,
	}
}

func (s *webhookService) ProcessKofiWebhook(ctx context.Context, payload []byte) (*IngestResult, error) {
	var p kofiPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := s.validate(&p); err != nil {
		return nil, err
	}

	// Donor resolution: exact email, then username, then Discord handle.
	ownerID, resolved, err := s.resolver.Resolve(ctx, p.Email, p.FromName)
	if err != nil {
		return nil, err
	}

	d := s.buildDonation(&p, payload, ownerID, resolved)

	// The (provider, external_id) unique constraint is the dedup authority:
	// a conflict means a concurrent or replayed delivery already won.
	if err := s.donationRepo.Create(ctx, d); err != nil {
		if !isDuplicate(err) {
			return nil, fmt.Errorf("persist donation: %w", err)
		}
		prior, err := s.donationRepo.GetByProviderExternalID(ctx, model.ProviderKofi, p.MessageID)
		if err != nil {
			return nil, fmt.Errorf("load duplicate donation: %w", err)
		}
		slog.Info("duplicate webhook delivery",
			"provider", model.ProviderKofi, "external_id", p.MessageID, "donation_id", prior.ID)
		return &IngestResult{Donation: prior, Duplicate: true}, nil
	}

	result := &IngestResult{Donation: d}
	if d.Status == model.DonationCompleted && d.IsResolved() {
		// A step failure must not fail the delivery: the donation is safely
		// persisted and entitlements_processed stays false for a retry.
		if err := s.entitlements.ProcessDonation(ctx, d); err != nil {
			slog.Error("entitlement processing failed after ingest",
				"donation_id", d.ID, "error", err)
		} else {
			d.EntitlementsProcessed = true
			result.EntitlementsRun = true
		}
	}
	return result, nil
}

func (s *webhookService) validate(p *kofiPayload) error {
	required := []struct {
		name  string
		empty bool
	}{
		{"message_id", p.MessageID == ""},
		{"timestamp", p.Timestamp.IsZero()},
		{"type", p.Type == ""},
		{"from_name", p.FromName == ""},
		{"amount", p.Amount.IsZero()},
		{"currency", p.Currency == ""},
	}
	for _, f := range required {
		if f.empty {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	if subtle.ConstantTimeCompare([]byte(p.VerificationToken), []byte(s.cfg.VerificationToken)) != 1 {
		// Security event: either a misconfiguration or a forged delivery.
		slog.Warn("webhook verification token mismatch",
			"provider", model.ProviderKofi, "external_id", p.MessageID)
		return ErrBadToken
	}

	if p.Type != "Donation" && p.Type != "Subscription" {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, p.Type)
	}

	if p.Amount.LessThan(minDonationAmount) || p.Amount.GreaterThan(maxDonationAmount) {
		return fmt.Errorf("%w: %s", ErrAmountOutOfRange, p.Amount.String())
	}

	// 鮮度ウィンドウは (now-Freshness, now+ClockSkew]。下限ちょうどは古い扱い。
	now := s.now()
	if !p.Timestamp.After(now.Add(-s.cfg.Freshness)) || p.Timestamp.After(now.Add(s.cfg.ClockSkew)) {
		return fmt.Errorf("%w: %s", ErrStaleEvent, p.Timestamp.Format(time.RFC3339))
	}
	return nil
}

func (s *webhookService) buildDonation(p *kofiPayload, raw []byte, ownerID string, resolved bool) *model.Donation {
	d := &model.Donation{
		ID:          uuid.NewString(),
		Amount:      p.Amount,
		Currency:    p.Currency,
		OccurredAt:  p.Timestamp,
		Provider:    model.ProviderKofi,
		ExternalID:  p.MessageID,
		DonorName:   p.FromName,
		DonorEmail:  p.Email,
		IsAnonymous: p.IsPublic != nil && !*p.IsPublic,
		RawPayload:  raw,
		Status:      model.DonationPending,
	}
	if resolved {
		d.OwnerUserID = &ownerID
		// Only one-off Donation events complete immediately; Subscription
		// events stay pending until an admin confirms the payment.
		if p.Type == "Donation" {
			d.Status = model.DonationCompleted
		}
	} else {
		d.AdminNotes = fmt.Sprintf("unmatched donor %q: assign manually", p.FromName)
	}
	return d
}
