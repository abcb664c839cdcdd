package model

import "time"

// User is the slice of the site's user account the entitlement engine needs:
// the identity fields the donor resolver matches on, and the cosmetic custom
// role that is cleared when an active-supporter grant lapses.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	DiscordHandle string    `json:"discord_handle,omitempty"`
	CustomRole    string    `json:"custom_role,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
