package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/servease/booking-api/internal/model"
	"github.com/servease/booking-api/internal/repository"
	"github.com/servease/booking-api/pkg/logger"
	"github.com/servease/booking-api/pkg/metrics"
)

const (
	slotDuration  = time.Hour
	timeLayout    = "15:04"
	priceCacheTTL = 5 * time.Minute
)

var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrCityNotSet           = errors.New("user city not set")
	ErrPastDateTime         = errors.New("booking time must be in the future")
	ErrSlotUnavailable      = errors.New("slot not available")
	ErrNoProviderAvailable  = errors.New("no provider available for this slot")
	ErrProviderDoubleBooked = errors.New("provider already booked for this slot")
	ErrProviderCityMismatch = errors.New("provider is in a different city")
	ErrUnauthorized         = errors.New("not allowed for this booking")
	ErrAlreadyCompleted     = errors.New("cannot cancel a completed booking")
	ErrInvalidStatus        = errors.New("invalid booking state")
)

// EligibilityResolver produces the ordered provider candidate list for a
// city and optional service.
type EligibilityResolver interface {
	Resolve(ctx context.Context, city string, serviceID *uuid.UUID) ([]uuid.UUID, error)
}

// StartGate issues and verifies the one-time job start code.
type StartGate interface {
	Issue(ctx context.Context, bookingID uuid.UUID) (string, error)
	Reissue(ctx context.Context, booking *model.Booking) (string, error)
	Verify(ctx context.Context, booking *model.Booking, candidate string) error
}

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Notify(ctx context.Context, userID, bookingID uuid.UUID, message string) error
}

// Service orchestrates slot allocation and the booking lifecycle. All slot
// and booking rows are mutated only through the conditional-update
// primitives on the repositories; BookSlot wraps the whole allocation in a
// single transaction so a failed step releases the reservation.
type Service struct {
	bookings  repository.BookingRepository
	slots     repository.SlotRepository
	providers repository.ProviderRepository
	users     repository.UserRepository
	services  repository.ServiceRepository
	resolver  EligibilityResolver
	gate      StartGate
	notifier  Notifier
	txm       repository.TxManager
	prices    *gocache.Cache
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	bookings repository.BookingRepository,
	slots repository.SlotRepository,
	providers repository.ProviderRepository,
	users repository.UserRepository,
	services repository.ServiceRepository,
	resolver EligibilityResolver,
	gate StartGate,
	notifier Notifier,
	txm repository.TxManager,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		bookings:  bookings,
		slots:     slots,
		providers: providers,
		users:     users,
		services:  services,
		resolver:  resolver,
		gate:      gate,
		notifier:  notifier,
		txm:       txm,
		prices:    gocache.New(priceCacheTTL, 2*priceCacheTTL),
		logger:    logger,
		metrics:   m,
	}
}

// Create inserts a PENDING booking with no provider. Assignment happens
// later, either manually or through a provider accept flow.
func (s *Service) Create(ctx context.Context, customerID uuid.UUID, req *model.CreateBookingRequest) (*model.Booking, error) {
	if !req.DateTime.After(time.Now()) {
		return nil, ErrPastDateTime
	}

	city, err := s.resolveUserCity(ctx, customerID)
	if err != nil {
		return nil, err
	}

	price, err := s.resolvePrice(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		CustomerID: customerID,
		ServiceID:  req.ServiceID,
		City:       city,
		DateTime:   req.DateTime,
		Location:   req.Location,
		Price:      price,
		Status:     model.BookingStatusPending,
	}

	if err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, customerID, booking.ID, "Booking created. We will assign a provider shortly.")
	}); err != nil {
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues(string(model.BookingStatusPending)).Inc()
	s.logger.Info("booking created",
		"booking_id", booking.ID.String(),
		"customer_id", customerID.String())
	return booking, nil
}

// BookSlot reserves a provider slot and creates the booking directly in
// ACCEPTED. With an explicit provider the exact slot is claimed; otherwise
// eligible candidates are scanned in resolver order and the first
// successful reservation wins. Reservation, overlap check, booking insert,
// start-code issuance and notifications commit as one unit.
func (s *Service) BookSlot(ctx context.Context, customerID uuid.UUID, req *model.SlotBookingRequest) (*model.Booking, error) {
	timer := prometheus.NewTimer(s.metrics.AllocationLatency)
	defer timer.ObserveDuration()

	if !req.DateTime.After(time.Now()) {
		return nil, ErrPastDateTime
	}

	city, err := s.resolveUserCity(ctx, customerID)
	if err != nil {
		return nil, err
	}

	price, err := s.resolvePrice(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	date := truncateToDay(req.DateTime)
	startTime := req.DateTime.Format(timeLayout)
	endTime := req.DateTime.Add(slotDuration).Format(timeLayout)

	var booking *model.Booking

	err = s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var providerID uuid.UUID

		if req.ProviderID != nil {
			providerID = *req.ProviderID
			if err := s.ensureProviderCityMatch(ctx, providerID, city); err != nil {
				return err
			}
			ok, err := s.slots.Reserve(ctx, providerID, date, startTime, endTime)
			if err != nil {
				return err
			}
			if !ok {
				s.metrics.SlotReservations.WithLabelValues("conflict").Inc()
				return ErrSlotUnavailable
			}
			s.metrics.SlotReservations.WithLabelValues("reserved").Inc()
		} else {
			candidates, err := s.resolver.Resolve(ctx, city, &req.ServiceID)
			if err != nil {
				return fmt.Errorf("failed to resolve providers: %w", err)
			}

			reserved := false
			for _, pid := range candidates {
				ok, err := s.slots.Reserve(ctx, pid, date, startTime, endTime)
				if err != nil {
					return err
				}
				if ok {
					providerID = pid
					reserved = true
					break
				}
				s.metrics.SlotReservations.WithLabelValues("conflict").Inc()
			}
			if !reserved {
				return ErrNoProviderAvailable
			}
			s.metrics.SlotReservations.WithLabelValues("reserved").Inc()
		}

		// Secondary safety net: bookings created outside the slot path can
		// still collide with this window.
		overlap, err := s.bookings.HasOverlap(ctx, providerID,
			req.DateTime, req.DateTime.Add(slotDuration),
			[]model.BookingStatus{model.BookingStatusAccepted, model.BookingStatusStarted})
		if err != nil {
			return err
		}
		if overlap {
			return ErrProviderDoubleBooked
		}

		booking = &model.Booking{
			CustomerID: customerID,
			ProviderID: &providerID,
			ServiceID:  req.ServiceID,
			City:       city,
			DateTime:   req.DateTime,
			Location:   req.Location,
			Price:      price,
			Status:     model.BookingStatusAccepted,
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}

		code, err := s.gate.Issue(ctx, booking.ID)
		if err != nil {
			return err
		}

		if err := s.notifier.Notify(ctx, customerID, booking.ID,
			fmt.Sprintf("Job start code for your booking is %s. Share it with the provider to start the job.", code)); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, providerID, booking.ID,
			"New job assigned. Ask the customer for the start code to begin.")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues(string(model.BookingStatusAccepted)).Inc()
	s.logger.Info("slot booked",
		"booking_id", booking.ID.String(),
		"provider_id", booking.ProviderID.String(),
		"customer_id", customerID.String())
	return booking, nil
}

// Cancel moves a booking to CANCELLED. Completed bookings are immutable and
// only the booking's customer or assigned provider may cancel. A reserved
// slot is released back to AVAILABLE when the job had not started its window.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID uuid.UUID) error {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.Status == model.BookingStatusCompleted {
		return ErrAlreadyCompleted
	}

	isCustomer := actorID == booking.CustomerID
	isProvider := booking.ProviderID != nil && actorID == *booking.ProviderID
	if !isCustomer && !isProvider {
		return ErrUnauthorized
	}

	wasActive := booking.Status == model.BookingStatusAccepted || booking.Status == model.BookingStatusStarted
	booking.Status = model.BookingStatusCancelled

	err = s.txm.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Update(ctx, booking); err != nil {
			return err
		}

		if wasActive && booking.ProviderID != nil && booking.DateTime.After(time.Now()) {
			if _, err := s.slots.Release(ctx, *booking.ProviderID,
				truncateToDay(booking.DateTime),
				booking.DateTime.Format(timeLayout),
				booking.DateTime.Add(slotDuration).Format(timeLayout)); err != nil {
				return err
			}
		}

		if err := s.notifier.Notify(ctx, booking.CustomerID, booking.ID, "Your booking was cancelled."); err != nil {
			return err
		}
		if booking.ProviderID != nil {
			msg := "Booking was cancelled by the customer."
			if isProvider {
				msg = "You cancelled the booking."
			}
			if err := s.notifier.Notify(ctx, *booking.ProviderID, booking.ID, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("booking cancelled",
		"booking_id", bookingID.String(),
		"actor_id", actorID.String())
	return nil
}

// ResendStartOTP regenerates the start code for the customer. Allowed only
// for ACCEPTED bookings with a provider assigned and no verification yet.
func (s *Service) ResendStartOTP(ctx context.Context, bookingID, customerID uuid.UUID) error {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if customerID != booking.CustomerID {
		return ErrUnauthorized
	}
	if booking.ProviderID == nil || booking.Status != model.BookingStatusAccepted {
		return ErrInvalidStatus
	}

	return s.txm.WithinTx(ctx, func(ctx context.Context) error {
		code, err := s.gate.Reissue(ctx, booking)
		if err != nil {
			return err
		}
		return s.notifier.Notify(ctx, customerID, booking.ID,
			fmt.Sprintf("Job start code for your booking is %s. Share it with the provider to start the job.", code))
	})
}

// VerifyStartOTP lets the assigned provider present the customer's code.
// On success the booking advances to STARTED.
func (s *Service) VerifyStartOTP(ctx context.Context, bookingID, providerID uuid.UUID, code string) error {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.ProviderID == nil || providerID != *booking.ProviderID {
		return ErrUnauthorized
	}

	if err := s.gate.Verify(ctx, booking, code); err != nil {
		s.metrics.OTPVerifications.WithLabelValues("failure").Inc()
		return err
	}
	s.metrics.OTPVerifications.WithLabelValues("success").Inc()

	if err := s.notifier.Notify(ctx, booking.CustomerID, booking.ID, "Your job has started."); err != nil {
		s.logger.Error(err, "failed to notify customer of job start", "booking_id", bookingID.String())
	}
	if err := s.notifier.Notify(ctx, providerID, booking.ID, "Start code verified. You can begin the job."); err != nil {
		s.logger.Error(err, "failed to notify provider of job start", "booking_id", bookingID.String())
	}

	s.logger.Info("job started",
		"booking_id", bookingID.String(),
		"provider_id", providerID.String())
	return nil
}

// UpdateJobStatus lets the assigned provider close out an active job as
// COMPLETED or CANCELLED.
func (s *Service) UpdateJobStatus(ctx context.Context, providerID, bookingID uuid.UUID, status model.BookingStatus) error {
	if status != model.BookingStatusCompleted && status != model.BookingStatusCancelled {
		return ErrInvalidStatus
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.ProviderID == nil || providerID != *booking.ProviderID {
		return ErrUnauthorized
	}
	if booking.Status != model.BookingStatusAccepted && booking.Status != model.BookingStatusStarted {
		return ErrInvalidStatus
	}

	booking.Status = status
	if err := s.bookings.Update(ctx, booking); err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, booking.CustomerID, booking.ID,
		fmt.Sprintf("Your booking is now %s.", status)); err != nil {
		s.logger.Error(err, "failed to notify customer of job status", "booking_id", bookingID.String())
	}

	s.logger.Info("job status updated",
		"booking_id", bookingID.String(),
		"status", string(status))
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return s.getBooking(ctx, id)
}

func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Booking, error) {
	return s.bookings.ListByCustomer(ctx, customerID)
}

func (s *Service) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*model.Booking, error) {
	return s.bookings.ListByProvider(ctx, providerID)
}

// History returns the caller's finished bookings, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	return s.bookings.ListHistory(ctx, userID)
}

func (s *Service) getBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (s *Service) resolveUserCity(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", ErrUserNotFound
	}
	if user.City == "" {
		return "", ErrCityNotSet
	}
	return user.City, nil
}

func (s *Service) resolvePrice(ctx context.Context, serviceID uuid.UUID) (float64, error) {
	if cached, ok := s.prices.Get(serviceID.String()); ok {
		return cached.(float64), nil
	}

	svc, err := s.services.Get(ctx, serviceID)
	if err != nil {
		return 0, ErrServiceNotFound
	}

	s.prices.Set(serviceID.String(), svc.BasePrice, gocache.DefaultExpiration)
	return svc.BasePrice, nil
}

func (s *Service) ensureProviderCityMatch(ctx context.Context, providerID uuid.UUID, city string) error {
	profile, err := s.providers.GetProfileByUserID(ctx, providerID)
	if err != nil {
		return ErrProviderCityMismatch
	}
	if !strings.EqualFold(profile.City, city) {
		return ErrProviderCityMismatch
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
