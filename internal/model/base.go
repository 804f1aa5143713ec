package model

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the identity and audit columns shared by all persisted rows.
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
