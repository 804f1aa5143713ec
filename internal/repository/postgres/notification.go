package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servease/booking-api/internal/model"
)

// Upsert keeps a single notification row per (user, booking) pair. Re-sends
// of the same logical message overwrite the text and refresh updated_at.
func (r *notificationRepository) Upsert(ctx context.Context, userID, bookingID uuid.UUID, message string) error {
	query := `
		INSERT INTO notifications (id, user_id, booking_id, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, booking_id)
		DO UPDATE SET message = EXCLUDED.message, read_at = NULL, updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	if _, err := execer(ctx, r.db).ExecContext(ctx, query, uuid.New(), userID, bookingID, message, now); err != nil {
		return fmt.Errorf("failed to upsert notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	query := `
		SELECT id, user_id, booking_id, message, read_at, created_at, updated_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	var notifications []*model.Notification
	if err := sqlx.SelectContext(ctx, execer(ctx, r.db), &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
