package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/model"
	"github.com/servease/booking-api/internal/repository"
	"github.com/servease/booking-api/pkg/logger"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrCityNotSet   = errors.New("user city not set")
	ErrNotFound     = errors.New("provider not found")
)

// Service resolves which providers may take a job and manages the small
// amount of provider marketplace state the core needs (online flag).
type Service struct {
	providers repository.ProviderRepository
	users     repository.UserRepository
	logger    *logger.Logger
}

func NewService(providers repository.ProviderRepository, users repository.UserRepository, logger *logger.Logger) *Service {
	return &Service{
		providers: providers,
		users:     users,
		logger:    logger,
	}
}

// Resolve returns the ordered candidate list for a (city, service) pair:
// providers that are approved, online, city-matched and, when a service id
// is given, offering that service. Order is deterministic for a given data
// snapshot; auto-assignment takes the first candidate whose slot reserves.
func (s *Service) Resolve(ctx context.Context, city string, serviceID *uuid.UUID) ([]uuid.UUID, error) {
	if serviceID != nil {
		return s.providers.ListEligibleByCityAndService(ctx, city, *serviceID)
	}
	return s.providers.ListEligibleByCity(ctx, city)
}

// Nearby lists eligible providers around the customer's city for display.
func (s *Service) Nearby(ctx context.Context, customerID uuid.UUID, serviceID *uuid.UUID) ([]model.NearbyProvider, error) {
	user, err := s.users.Get(ctx, customerID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if user.City == "" {
		return nil, ErrCityNotSet
	}

	ids, err := s.Resolve(ctx, user.City, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve providers: %w", err)
	}

	nearby := make([]model.NearbyProvider, 0, len(ids))
	for _, id := range ids {
		name := "Provider"
		if u, err := s.users.Get(ctx, id); err == nil {
			name = u.Name
		}
		nearby = append(nearby, model.NearbyProvider{
			ProviderID: id,
			Name:       name,
			City:       user.City,
		})
	}
	return nearby, nil
}

// ToggleOnline flips the provider's availability for new jobs.
func (s *Service) ToggleOnline(ctx context.Context, providerID uuid.UUID, online bool) error {
	if err := s.providers.SetOnline(ctx, providerID, online); err != nil {
		return ErrNotFound
	}

	s.logger.Info("provider availability toggled",
		"provider_id", providerID.String(),
		"online", online)
	return nil
}
