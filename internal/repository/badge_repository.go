package repository

import (
	"context"

	"github.com/fanlore/backend/internal/model"
)

// BadgeRepository handles persistence for the badge catalog.
type BadgeRepository interface {
	GetByID(ctx context.Context, id string) (*model.Badge, error)
	// GetByKind returns the catalog badge for one of the derived kinds
	// (supporter, active_supporter, sponsor). Each is seeded exactly once.
	GetByKind(ctx context.Context, kind model.BadgeKind) (*model.Badge, error)
	List(ctx context.Context) ([]*model.Badge, error)
}
