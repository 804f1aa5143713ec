package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/repository"
	"github.com/servease/booking-api/pkg/logger"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrProviderNotFound = errors.New("provider not found")
	ErrNotApproved      = errors.New("provider not approved")
	ErrAlreadyAssigned  = errors.New("booking already assigned")
)

// StartGate issues the one-time job start code after assignment.
type StartGate interface {
	Issue(ctx context.Context, bookingID uuid.UUID) (string, error)
}

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Notify(ctx context.Context, userID, bookingID uuid.UUID, message string) error
}

// Service is the admin-driven assignment path for PENDING bookings. It
// shares the conditional-update primitive with the automatic path, so an
// admin racing the allocator resolves to exactly one winner.
type Service struct {
	bookings  repository.BookingRepository
	providers repository.ProviderRepository
	gate      StartGate
	notifier  Notifier
	txm       repository.TxManager
	logger    *logger.Logger
}

func NewService(
	bookings repository.BookingRepository,
	providers repository.ProviderRepository,
	gate StartGate,
	notifier Notifier,
	txm repository.TxManager,
	logger *logger.Logger,
) *Service {
	return &Service{
		bookings:  bookings,
		providers: providers,
		gate:      gate,
		notifier:  notifier,
		txm:       txm,
		logger:    logger,
	}
}

// AssignProvider assigns a specific provider to a PENDING booking. The
// PENDING check rides on the conditional update, not a prior read, so a
// concurrent assignment surfaces as ErrAlreadyAssigned rather than a
// silent overwrite.
func (s *Service) AssignProvider(ctx context.Context, bookingID, providerID uuid.UUID) error {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return ErrBookingNotFound
	}

	profile, err := s.providers.GetProfileByUserID(ctx, providerID)
	if err != nil {
		return ErrProviderNotFound
	}
	if !profile.Approved {
		return ErrNotApproved
	}

	err = s.txm.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.bookings.AssignIfPending(ctx, bookingID, providerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyAssigned
		}

		code, err := s.gate.Issue(ctx, bookingID)
		if err != nil {
			return err
		}

		if err := s.notifier.Notify(ctx, booking.CustomerID, bookingID,
			fmt.Sprintf("A provider has been assigned to your booking. Job start code: %s", code)); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, providerID, bookingID,
			"You have been assigned a booking. Ask the customer for the start code to begin.")
	})
	if err != nil {
		return err
	}

	s.logger.Info("provider assigned manually",
		"booking_id", bookingID.String(),
		"provider_id", providerID.String())
	return nil
}
