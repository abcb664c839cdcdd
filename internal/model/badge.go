package model

import "time"

// BadgeKind is the closed set of badge categories. The entitlement engine
// switches on it exhaustively; an unknown kind is an error, not a skip.
type BadgeKind string

const (
	BadgeKindSupporter       BadgeKind = "supporter"
	BadgeKindActiveSupporter BadgeKind = "active_supporter"
	BadgeKindSponsor         BadgeKind = "sponsor"
	BadgeKindCustom          BadgeKind = "custom"
)

// Badge is a catalog definition of an entitlement: cosmetics plus the kind
// that decides its eligibility rules. Catalog rows are rarely mutated.
type Badge struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Kind                BadgeKind `json:"kind"`
	Description         string    `json:"description,omitempty"`
	Icon                string    `json:"icon,omitempty"`
	Color               string    `json:"color,omitempty"`
	IsActive            bool      `json:"is_active"`
	IsManuallyAwardable bool      `json:"is_manually_awardable"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// BadgeStats is one row of the per-badge grant statistics.
type BadgeStats struct {
	BadgeID      string    `json:"badge_id"`
	Name         string    `json:"name"`
	Kind         BadgeKind `json:"kind"`
	ActiveGrants int       `json:"active_grants"`
	TotalGrants  int       `json:"total_grants"`
}
