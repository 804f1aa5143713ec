package model

import (
	"time"

	"github.com/google/uuid"
)

// ProviderProfile holds the marketplace state of a provider account.
// Eligibility for new jobs requires approved and online.
type ProviderProfile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	City      string    `db:"city" json:"city"`
	Approved  bool      `db:"approved" json:"approved"`
	Online    bool      `db:"online" json:"online"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type NearbyProvider struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Name       string    `json:"name"`
	City       string    `json:"city"`
}

type ToggleOnlineRequest struct {
	Online bool `json:"online"`
}
