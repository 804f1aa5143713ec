package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the per-user, per-booking message row. Delivery keeps a
// single row per (user, booking) pair; re-sends overwrite the message.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	BookingID *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	Message   string     `db:"message" json:"message"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
