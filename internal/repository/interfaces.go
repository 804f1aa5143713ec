package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	// TxManager runs a function inside a single database transaction.
	// Repository calls made with the context it passes down share that
	// transaction; returning an error rolls everything back.
	TxManager interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	// BookingRepository owns booking rows and their conditional transitions.
	BookingRepository interface {
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		Update(ctx context.Context, booking *model.Booking) error
		// AssignIfPending sets provider and flips PENDING to ACCEPTED in one
		// conditional write. Returns false when the booking was no longer PENDING.
		AssignIfPending(ctx context.Context, bookingID, providerID uuid.UUID) (bool, error)
		// MarkStarted stamps the verification time and flips ACCEPTED to STARTED
		// in one conditional write. Returns false when the booking was not ACCEPTED
		// or was already verified.
		MarkStarted(ctx context.Context, bookingID uuid.UUID, verifiedAt time.Time) (bool, error)
		SetStartOTP(ctx context.Context, bookingID uuid.UUID, hash string, generatedAt time.Time) error
		HasOverlap(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time, statuses []model.BookingStatus) (bool, error)
		ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Booking, error)
		ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*model.Booking, error)
		// ListHistory returns finished bookings the user took part in, either side.
		ListHistory(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error)
	}

	// SlotRepository owns provider availability rows.
	SlotRepository interface {
		// CreateBatch inserts rows, silently skipping slot keys that already
		// exist so booked rows survive a republish.
		CreateBatch(ctx context.Context, slots []*model.Slot) error
		DeleteAvailable(ctx context.Context, providerID uuid.UUID, date time.Time) error
		ListAvailable(ctx context.Context, providerIDs []uuid.UUID, date time.Time) ([]*model.Slot, error)
		// Reserve flips exactly one AVAILABLE row matching the key to BOOKED.
		// Returns false when no such row exists or a concurrent caller won.
		Reserve(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (bool, error)
		// Release flips a BOOKED row back to AVAILABLE.
		Release(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (bool, error)
	}

	ProviderRepository interface {
		GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*model.ProviderProfile, error)
		ListEligibleByCity(ctx context.Context, city string) ([]uuid.UUID, error)
		ListEligibleByCityAndService(ctx context.Context, city string, serviceID uuid.UUID) ([]uuid.UUID, error)
		SetOnline(ctx context.Context, userID uuid.UUID, online bool) error
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	}

	ServiceRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.SubService, error)
	}

	NotificationRepository interface {
		// Upsert keeps one row per (user, booking) pair, overwriting the message.
		Upsert(ctx context.Context, userID, bookingID uuid.UUID, message string) error
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error
	}
)
