package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servease/booking-api/internal/model"
)

func (r *serviceRepository) Get(ctx context.Context, id uuid.UUID) (*model.SubService, error) {
	query := `
		SELECT id, name, base_price, created_at, updated_at
		FROM sub_services
		WHERE id = $1
	`
	var svc model.SubService
	err := sqlx.GetContext(ctx, execer(ctx, r.db), &svc, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sub service: %w", err)
	}
	return &svc, nil
}
