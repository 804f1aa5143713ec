package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusAccepted  BookingStatus = "ACCEPTED"
	BookingStatusStarted   BookingStatus = "STARTED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type Booking struct {
	Base
	CustomerID uuid.UUID     `db:"customer_id" json:"customer_id"`
	ProviderID *uuid.UUID    `db:"provider_id" json:"provider_id,omitempty"`
	ServiceID  uuid.UUID     `db:"service_id" json:"service_id"`
	City       string        `db:"city" json:"city"`
	DateTime   time.Time     `db:"date_time" json:"date_time"`
	Location   string        `db:"location" json:"location"`
	Price      float64       `db:"price" json:"price"`
	Status     BookingStatus `db:"status" json:"status"`

	// Start code is stored hashed; the plaintext is delivered once and never persisted.
	StartOTPHash        *string    `db:"start_otp_hash" json:"-"`
	StartOTPGeneratedAt *time.Time `db:"start_otp_generated_at" json:"-"`
	StartOTPVerifiedAt  *time.Time `db:"start_otp_verified_at" json:"start_otp_verified_at,omitempty"`
}

type CreateBookingRequest struct {
	ServiceID uuid.UUID `json:"service_id" binding:"required"`
	DateTime  time.Time `json:"date_time" binding:"required"`
	Location  string    `json:"location" binding:"required,max=500"`
}

type SlotBookingRequest struct {
	ServiceID  uuid.UUID  `json:"service_id" binding:"required"`
	DateTime   time.Time  `json:"date_time" binding:"required"`
	Location   string     `json:"location" binding:"required,max=500"`
	ProviderID *uuid.UUID `json:"provider_id"`
}

type VerifyStartOTPRequest struct {
	Code string `json:"code" binding:"required,len=4,numeric"`
}

type ManualAssignRequest struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
}

type UpdateJobStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required,oneof=COMPLETED CANCELLED"`
}
