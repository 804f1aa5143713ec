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

func (r *providerRepository) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*model.ProviderProfile, error) {
	query := `
		SELECT id, user_id, city, approved, online, created_at
		FROM provider_profiles
		WHERE user_id = $1
	`
	var profile model.ProviderProfile
	err := sqlx.GetContext(ctx, execer(ctx, r.db), &profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get provider profile: %w", err)
	}
	return &profile, nil
}

// ListEligibleByCity returns approved, online providers in a city. Ordering
// by user id keeps the auto-assignment scan order deterministic.
func (r *providerRepository) ListEligibleByCity(ctx context.Context, city string) ([]uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM provider_profiles
		WHERE lower(city) = lower($1) AND approved = true AND online = true
		ORDER BY user_id ASC
	`
	var ids []uuid.UUID
	if err := sqlx.SelectContext(ctx, execer(ctx, r.db), &ids, query, city); err != nil {
		return nil, fmt.Errorf("failed to list eligible providers: %w", err)
	}
	return ids, nil
}

func (r *providerRepository) ListEligibleByCityAndService(ctx context.Context, city string, serviceID uuid.UUID) ([]uuid.UUID, error) {
	// provider_services is keyed by the provider's user id, same as every
	// other provider reference in the schema.
	query := `
		SELECT p.user_id
		FROM provider_profiles p
		JOIN provider_services ps ON ps.provider_id = p.user_id
		WHERE lower(p.city) = lower($1) AND p.approved = true AND p.online = true
		AND ps.service_id = $2
		ORDER BY p.user_id ASC
	`
	var ids []uuid.UUID
	if err := sqlx.SelectContext(ctx, execer(ctx, r.db), &ids, query, city, serviceID); err != nil {
		return nil, fmt.Errorf("failed to list eligible providers for service: %w", err)
	}
	return ids, nil
}

func (r *providerRepository) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	query := `
		UPDATE provider_profiles
		SET online = $2
		WHERE user_id = $1
	`
	result, err := execer(ctx, r.db).ExecContext(ctx, query, userID, online)
	if err != nil {
		return fmt.Errorf("failed to set provider online flag: %w", err)
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
