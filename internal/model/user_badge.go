package model

import "time"

// UserBadge is a single grant of a badge to a user. Grants are never
// physically deleted: revocation and expiry flip IsActive and fill the audit
// fields. The one exception is the active-supporter renewal, which rewrites
// the existing row in place so the 365-day timer restarts.
type UserBadge struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	BadgeID         string         `json:"badge_id"`
	Kind            BadgeKind      `json:"kind"` // denormalized from the badge at award time
	AwardedAt       time.Time      `json:"awarded_at"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"` // nil = permanent
	Year            *int           `json:"year,omitempty"`       // supporter grants only
	Reason          string         `json:"reason,omitempty"`
	AwardedByUserID *string        `json:"awarded_by_user_id,omitempty"` // manual grants only
	Metadata        map[string]any `json:"metadata,omitempty"`
	IsActive        bool           `json:"is_active"`
	RevokedAt       *time.Time     `json:"revoked_at,omitempty"`
	RevokedReason   *string        `json:"revoked_reason,omitempty"`
	RevokedByUserID *string        `json:"revoked_by_user_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ExpiredGrant is the slice of a deactivated grant the sweeper needs to
// cascade side effects.
type ExpiredGrant struct {
	ID     string
	UserID string
	Kind   BadgeKind
}
