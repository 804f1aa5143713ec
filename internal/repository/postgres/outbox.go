package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servease/booking-api/internal/model"
)

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()

	if _, err := execer(ctx, r.db).ExecContext(ctx, query,
		event.ID, event.EventType, event.Payload, event.Status, event.RetryCount, event.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// GetPendingWithLock claims a batch of deliverable events. SKIP LOCKED lets
// multiple worker instances poll the table without double delivery.
func (r *outboxRepository) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, error_message, retry_count, retry_at, created_at, processed_at
		FROM outbox_events
		WHERE status IN ($1, $2)
		AND (retry_at IS NULL OR retry_at <= now())
		ORDER BY created_at ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`
	var events []*model.OutboxEvent
	err := sqlx.SelectContext(ctx, execer(ctx, r.db), &events, query,
		model.OutboxStatusPending, model.OutboxStatusRetry, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = $2, error_message = $3, retry_at = $4,
			retry_count = retry_count + CASE WHEN $2 = $5 THEN 1 ELSE 0 END,
			processed_at = CASE WHEN $2 = $6 THEN now() ELSE processed_at END
		WHERE id = $1
	`
	if _, err := execer(ctx, r.db).ExecContext(ctx, query,
		id, status, errMsg, retryAt, model.OutboxStatusRetry, model.OutboxStatusProcessed,
	); err != nil {
		return fmt.Errorf("failed to update outbox event: %w", err)
	}
	return nil
}
