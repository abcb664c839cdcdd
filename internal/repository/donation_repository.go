package repository

import (
	"context"

	"github.com/fanlore/backend/internal/model"
	"github.com/shopspring/decimal"
)

// DonationRepository is the persistence port for the donation ledger.
type DonationRepository interface {
	// Create inserts a donation. Returns ErrDuplicate when the
	// (provider, external_id) uniqueness constraint is violated.
	Create(ctx context.Context, d *model.Donation) error
	// GetByID returns a single donation by ID.
	GetByID(ctx context.Context, id string) (*model.Donation, error)
	// GetByProviderExternalID returns the donation for an idempotency key.
	GetByProviderExternalID(ctx context.Context, provider model.DonationProvider, externalID string) (*model.Donation, error)
	// AssignOwner sets the owner, marks the donation completed and appends an
	// audit note. Used by admin reconciliation.
	AssignOwner(ctx context.Context, id, userID, note string) error
	// UpdateStatus transitions a donation's status.
	UpdateStatus(ctx context.Context, id string, status model.DonationStatus) error
	// MarkEntitlementsProcessed flips entitlements_processed to true. The flag
	// is monotonic; re-marking an already processed donation is a no-op.
	MarkEntitlementsProcessed(ctx context.Context, id string) error
	// SumCompletedByUser returns the lifetime sum of completed donation
	// amounts for a user as an exact decimal.
	SumCompletedByUser(ctx context.Context, userID string) (decimal.Decimal, error)
	// ListUnresolved returns pending donations with no owner, oldest first.
	ListUnresolved(ctx context.Context, limit, offset int) ([]*model.Donation, error)
	// CountUnresolved returns the size of the reconciliation queue.
	CountUnresolved(ctx context.Context) (int, error)
	// StatsByStatus returns per-status donation counts and totals.
	StatsByStatus(ctx context.Context) ([]*model.DonationStatusCount, error)
}
