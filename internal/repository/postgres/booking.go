package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servease/booking-api/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			id, customer_id, provider_id, service_id, city,
			date_time, location, price, status,
			start_otp_hash, start_otp_generated_at, start_otp_verified_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = time.Now()

	_, err := execer(ctx, r.db).ExecContext(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.ProviderID,
		booking.ServiceID,
		booking.City,
		booking.DateTime,
		booking.Location,
		booking.Price,
		booking.Status,
		booking.StartOTPHash,
		booking.StartOTPGeneratedAt,
		booking.StartOTPVerifiedAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `
		SELECT id, customer_id, provider_id, service_id, city,
			   date_time, location, price, status,
			   start_otp_hash, start_otp_generated_at, start_otp_verified_at,
			   created_at, updated_at
		FROM bookings
		WHERE id = $1
	`
	var booking model.Booking
	err := sqlx.GetContext(ctx, execer(ctx, r.db), &booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE bookings
		SET provider_id = $1, status = $2, price = $3,
			start_otp_hash = $4, start_otp_generated_at = $5, start_otp_verified_at = $6,
			updated_at = $7
		WHERE id = $8
	`
	booking.UpdatedAt = time.Now()

	result, err := execer(ctx, r.db).ExecContext(ctx, query,
		booking.ProviderID,
		booking.Status,
		booking.Price,
		booking.StartOTPHash,
		booking.StartOTPGeneratedAt,
		booking.StartOTPVerifiedAt,
		booking.UpdatedAt,
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignIfPending is the compare-and-swap used by assignment paths. The
// status predicate makes concurrent assigners resolve to a single winner.
func (r *bookingRepository) AssignIfPending(ctx context.Context, bookingID, providerID uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET provider_id = $2, status = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`
	result, err := execer(ctx, r.db).ExecContext(ctx, query,
		bookingID, providerID, model.BookingStatusAccepted, time.Now(), model.BookingStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to assign booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *bookingRepository) MarkStarted(ctx context.Context, bookingID uuid.UUID, verifiedAt time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $2, start_otp_verified_at = $3, updated_at = $4
		WHERE id = $1 AND status = $5 AND start_otp_verified_at IS NULL
	`
	result, err := execer(ctx, r.db).ExecContext(ctx, query,
		bookingID, model.BookingStatusStarted, verifiedAt, time.Now(), model.BookingStatusAccepted,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking started: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *bookingRepository) SetStartOTP(ctx context.Context, bookingID uuid.UUID, hash string, generatedAt time.Time) error {
	query := `
		UPDATE bookings
		SET start_otp_hash = $2, start_otp_generated_at = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := execer(ctx, r.db).ExecContext(ctx, query, bookingID, hash, generatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set start otp: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// HasOverlap reports whether the provider has a booking in one of the given
// statuses starting inside [windowStart, windowEnd). Slots are hour-aligned
// and bookings start on slot boundaries, so matching on the start instant is
// a full collision check for slot-sized windows.
func (r *bookingRepository) HasOverlap(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time, statuses []model.BookingStatus) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE provider_id = ?
			AND status IN (?)
			AND date_time >= ? AND date_time < ?
		)
	`
	query, args, err := sqlx.In(query, providerID, statuses, windowStart, windowEnd)
	if err != nil {
		return false, fmt.Errorf("failed to build overlap query: %w", err)
	}

	e := execer(ctx, r.db)
	query = e.Rebind(query)

	var overlap bool
	if err := sqlx.GetContext(ctx, e, &overlap, query, args...); err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return overlap, nil
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Booking, error) {
	query := `
		SELECT id, customer_id, provider_id, service_id, city,
			   date_time, location, price, status,
			   start_otp_hash, start_otp_generated_at, start_otp_verified_at,
			   created_at, updated_at
		FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`
	var bookings []*model.Booking
	if err := sqlx.SelectContext(ctx, execer(ctx, r.db), &bookings, query, customerID); err != nil {
		return nil, fmt.Errorf("failed to list customer bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*model.Booking, error) {
	query := `
		SELECT id, customer_id, provider_id, service_id, city,
			   date_time, location, price, status,
			   start_otp_hash, start_otp_generated_at, start_otp_verified_at,
			   created_at, updated_at
		FROM bookings
		WHERE provider_id = $1
		ORDER BY created_at DESC
	`
	var bookings []*model.Booking
	if err := sqlx.SelectContext(ctx, execer(ctx, r.db), &bookings, query, providerID); err != nil {
		return nil, fmt.Errorf("failed to list provider bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListHistory(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	query := `
		SELECT id, customer_id, provider_id, service_id, city,
			   date_time, location, price, status,
			   start_otp_hash, start_otp_generated_at, start_otp_verified_at,
			   created_at, updated_at
		FROM bookings
		WHERE (customer_id = $1 OR provider_id = $1)
		  AND status IN ('COMPLETED', 'CANCELLED')
		ORDER BY created_at DESC
	`
	var bookings []*model.Booking
	if err := sqlx.SelectContext(ctx, execer(ctx, r.db), &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list booking history: %w", err)
	}
	return bookings, nil
}
