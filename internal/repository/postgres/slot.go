package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servease/booking-api/internal/model"
)

func (r *slotRepository) CreateBatch(ctx context.Context, slots []*model.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	// BOOKED rows survive the AVAILABLE-scoped delete of a republish; the
	// conflict clause leaves them untouched instead of aborting the batch.
	query := `
		INSERT INTO provider_availability (
			id, provider_id, slot_date, start_time, end_time, status
		) VALUES (:id, :provider_id, :slot_date, :start_time, :end_time, :status)
		ON CONFLICT (provider_id, slot_date, start_time, end_time) DO NOTHING
	`
	for _, s := range slots {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
	}

	e := execer(ctx, r.db)
	if _, err := sqlx.NamedExecContext(ctx, e, query, slots); err != nil {
		return fmt.Errorf("failed to create slots: %w", err)
	}
	return nil
}

// DeleteAvailable is scoped to AVAILABLE rows so republishing a day never
// touches slots that are already booked.
func (r *slotRepository) DeleteAvailable(ctx context.Context, providerID uuid.UUID, date time.Time) error {
	query := `
		DELETE FROM provider_availability
		WHERE provider_id = $1 AND slot_date = $2 AND status = $3
	`
	if _, err := execer(ctx, r.db).ExecContext(ctx, query, providerID, date, model.SlotStatusAvailable); err != nil {
		return fmt.Errorf("failed to delete available slots: %w", err)
	}
	return nil
}

func (r *slotRepository) ListAvailable(ctx context.Context, providerIDs []uuid.UUID, date time.Time) ([]*model.Slot, error) {
	if len(providerIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, provider_id, slot_date, start_time, end_time, status
		FROM provider_availability
		WHERE provider_id IN (?) AND slot_date = ? AND status = ?
		ORDER BY start_time ASC
	`
	query, args, err := sqlx.In(query, providerIDs, date, model.SlotStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to build slot query: %w", err)
	}

	e := execer(ctx, r.db)
	query = e.Rebind(query)

	var slots []*model.Slot
	if err := sqlx.SelectContext(ctx, e, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list available slots: %w", err)
	}
	return slots, nil
}

// Reserve claims the slot with a single conditional update. The status
// predicate serializes concurrent reservers on the row: one caller flips
// AVAILABLE to BOOKED, the rest see zero rows affected.
func (r *slotRepository) Reserve(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (bool, error) {
	query := `
		UPDATE provider_availability
		SET status = $5
		WHERE provider_id = $1 AND slot_date = $2 AND start_time = $3 AND end_time = $4
		AND status = $6
	`
	result, err := execer(ctx, r.db).ExecContext(ctx, query,
		providerID, date, startTime, endTime, model.SlotStatusBooked, model.SlotStatusAvailable,
	)
	if err != nil {
		return false, fmt.Errorf("failed to reserve slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *slotRepository) Release(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (bool, error) {
	query := `
		UPDATE provider_availability
		SET status = $5
		WHERE provider_id = $1 AND slot_date = $2 AND start_time = $3 AND end_time = $4
		AND status = $6
	`
	result, err := execer(ctx, r.db).ExecContext(ctx, query,
		providerID, date, startTime, endTime, model.SlotStatusAvailable, model.SlotStatusBooked,
	)
	if err != nil {
		return false, fmt.Errorf("failed to release slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
