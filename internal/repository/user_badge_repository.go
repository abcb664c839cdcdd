package repository

import (
	"context"
	"time"

	"github.com/fanlore/backend/internal/model"
)

// UserBadgeRepository handles persistence for badge grants.
//
// Uniqueness is enforced by partial indexes, not application checks:
//   - (user_id, badge_id, year) for supporter grants
//   - (user_id, badge_id) for active_supporter (the upsert target)
//   - (user_id, badge_id) for sponsor (the optimistic-insert guard)
type UserBadgeRepository interface {
	// Insert creates a grant. Returns ErrDuplicate on a uniqueness conflict,
	// which one-shot award paths treat as "already granted".
	Insert(ctx context.Context, g *model.UserBadge) error
	// UpsertActiveSupporter inserts or fully replaces the single
	// active_supporter row for (user, badge): award time, expiry, metadata and
	// revoke audit are all rewritten so the renewal timer restarts cleanly.
	UpsertActiveSupporter(ctx context.Context, g *model.UserBadge) error
	// GetByID returns a single grant.
	GetByID(ctx context.Context, id string) (*model.UserBadge, error)
	// Exists reports whether any grant row (active or not) exists for the pair.
	Exists(ctx context.Context, userID, badgeID string) (bool, error)
	// ExistsActive reports whether an active grant exists for the pair.
	ExistsActive(ctx context.Context, userID, badgeID string) (bool, error)
	// ListActiveByUser returns a user's currently active grants.
	ListActiveByUser(ctx context.Context, userID string) ([]*model.UserBadge, error)
	// Revoke deactivates an active grant and fills the audit fields. Returns
	// ErrNotFound if no active grant with the ID exists. Never deletes.
	Revoke(ctx context.Context, id, revokedByUserID, reason string, at time.Time) error
	// SweepExpired flips is_active on every active grant whose expiry has
	// passed and, in the same statement, clears the custom role of each user
	// whose active_supporter grant was deactivated. Returns the deactivated
	// grants and the number of roles cleared. Conditional and idempotent:
	// concurrent sweepers race harmlessly, and the cascade cannot be lost
	// between a deactivation and a separate role update.
	SweepExpired(ctx context.Context, now time.Time) ([]*model.ExpiredGrant, int, error)
	// StatsByBadge returns active/total grant counts per catalog badge.
	StatsByBadge(ctx context.Context) ([]*model.BadgeStats, error)
}
