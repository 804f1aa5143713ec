package slot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/model"
	"github.com/servease/booking-api/internal/repository"
	"github.com/servease/booking-api/pkg/logger"
)

const timeLayout = "15:04"

var (
	ErrInvalidRange     = errors.New("invalid availability window")
	ErrNotEligible      = errors.New("provider not approved or not online")
	ErrProviderNotFound = errors.New("provider not found")
	ErrCityRequired     = errors.New("city is required")
)

// Service owns provider availability slots: generation from published
// windows and the grouped discovery query. Reservation itself happens on
// the repository inside the allocation transaction.
type Service struct {
	slots     repository.SlotRepository
	providers repository.ProviderRepository
	txm       repository.TxManager
	logger    *logger.Logger
}

func NewService(slots repository.SlotRepository, providers repository.ProviderRepository, txm repository.TxManager, logger *logger.Logger) *Service {
	return &Service{
		slots:     slots,
		providers: providers,
		txm:       txm,
		logger:    logger,
	}
}

// PublishWindow materializes one AVAILABLE row per hour-aligned interval of
// [startTime, endTime) for every date in [fromDate, toDate]. Republishing a
// day deletes only that day's AVAILABLE rows first, so already-booked slots
// survive.
func (s *Service) PublishWindow(ctx context.Context, providerID uuid.UUID, fromDate, toDate time.Time, startTime, endTime string) error {
	start, err := time.Parse(timeLayout, startTime)
	if err != nil {
		return fmt.Errorf("%w: bad start time", ErrInvalidRange)
	}
	end, err := time.Parse(timeLayout, endTime)
	if err != nil {
		return fmt.Errorf("%w: bad end time", ErrInvalidRange)
	}

	fromDate = truncateToDay(fromDate)
	toDate = truncateToDay(toDate)

	if fromDate.After(toDate) {
		return fmt.Errorf("%w: from date after to date", ErrInvalidRange)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start time not before end time", ErrInvalidRange)
	}

	profile, err := s.providers.GetProfileByUserID(ctx, providerID)
	if err != nil {
		return ErrProviderNotFound
	}
	if !profile.Approved || !profile.Online {
		return ErrNotEligible
	}

	return s.txm.WithinTx(ctx, func(ctx context.Context) error {
		for d := fromDate; !d.After(toDate); d = d.AddDate(0, 0, 1) {
			if err := s.slots.DeleteAvailable(ctx, providerID, d); err != nil {
				return err
			}

			var slots []*model.Slot
			for t := start; !t.Add(time.Hour).After(end); t = t.Add(time.Hour) {
				slots = append(slots, &model.Slot{
					ProviderID: providerID,
					Date:       d,
					StartTime:  t.Format(timeLayout),
					EndTime:    t.Add(time.Hour).Format(timeLayout),
					Status:     model.SlotStatusAvailable,
				})
			}

			if err := s.slots.CreateBatch(ctx, slots); err != nil {
				return err
			}
		}

		s.logger.Info("availability window published", "provider_id", providerID.String())
		return nil
	})
}

// QueryAvailable returns the open slots for a service on a date, grouped by
// time window with a count of providers per bucket, sorted by start time.
func (s *Service) QueryAvailable(ctx context.Context, serviceID uuid.UUID, date time.Time, city string) ([]model.SlotBucket, error) {
	if city == "" {
		return nil, ErrCityRequired
	}

	providerIDs, err := s.providers.ListEligibleByCityAndService(ctx, city, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve eligible providers: %w", err)
	}
	if len(providerIDs) == 0 {
		return []model.SlotBucket{}, nil
	}

	slots, err := s.slots.ListAvailable(ctx, providerIDs, truncateToDay(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	type window struct{ start, end string }
	counts := make(map[window]int64)
	for _, sl := range slots {
		counts[window{sl.StartTime, sl.EndTime}]++
	}

	buckets := make([]model.SlotBucket, 0, len(counts))
	for w, n := range counts {
		buckets = append(buckets, model.SlotBucket{
			StartTime: w.start,
			EndTime:   w.end,
			Providers: n,
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].StartTime < buckets[j].StartTime
	})
	return buckets, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
