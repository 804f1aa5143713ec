package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "AVAILABLE"
	SlotStatusBooked    SlotStatus = "BOOKED"
)

// Slot is one hour-aligned interval of a provider's published availability.
// Identity is (provider_id, slot_date, start_time, end_time).
type Slot struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ProviderID uuid.UUID  `db:"provider_id" json:"provider_id"`
	Date       time.Time  `db:"slot_date" json:"date"`
	StartTime  string     `db:"start_time" json:"start_time"`
	EndTime    string     `db:"end_time" json:"end_time"`
	Status     SlotStatus `db:"status" json:"status"`
}

// SlotBucket aggregates available slots across providers for display.
type SlotBucket struct {
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
	Providers int64  `db:"providers" json:"providers"`
}

type AvailabilityWindowRequest struct {
	FromDate  string `json:"from_date" binding:"required,datetime=2006-01-02"`
	ToDate    string `json:"to_date" binding:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" binding:"required,datetime=15:04"`
	EndTime   string `json:"end_time" binding:"required,datetime=15:04"`
}
