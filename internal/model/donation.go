package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationProvider identifies where a donation record originated.
type DonationProvider string

const (
	ProviderKofi   DonationProvider = "kofi"
	ProviderManual DonationProvider = "manual"
)

// DonationStatus is the lifecycle state of a donation.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationFailed    DonationStatus = "failed"
	DonationRefunded  DonationStatus = "refunded"
)

// Donation is a single inbound donation. (provider, external_id) is the
// idempotency key: duplicate webhook deliveries collide on it and are no-ops.
type Donation struct {
	ID                    string           `json:"id"`
	OwnerUserID           *string          `json:"owner_user_id,omitempty"` // nil = unresolved donor
	Amount                decimal.Decimal  `json:"amount"`
	Currency              string           `json:"currency"`
	OccurredAt            time.Time        `json:"occurred_at"`
	Provider              DonationProvider `json:"provider"`
	ExternalID            string           `json:"external_id"`
	Status                DonationStatus   `json:"status"`
	DonorName             string           `json:"donor_name"`
	DonorEmail            string           `json:"donor_email,omitempty"`
	IsAnonymous           bool             `json:"is_anonymous"`
	RawPayload            []byte           `json:"-"`
	EntitlementsProcessed bool             `json:"entitlements_processed"`
	AdminNotes            string           `json:"admin_notes,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// IsResolved returns true when the donation has been matched to a user.
func (d *Donation) IsResolved() bool {
	return d.OwnerUserID != nil
}

// DonationStatusCount is one row of the per-status donation statistics.
type DonationStatusCount struct {
	Status DonationStatus  `json:"status"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}
