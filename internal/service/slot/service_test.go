package slot

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servease/booking-api/internal/model"
	"github.com/servease/booking-api/pkg/logger"
)

type slotKey struct {
	provider   uuid.UUID
	date       time.Time
	start, end string
}

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[slotKey]model.SlotStatus
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[slotKey]model.SlotStatus)}
}

func (f *fakeSlotRepo) CreateBatch(ctx context.Context, slots []*model.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range slots {
		key := slotKey{s.ProviderID, s.Date, s.StartTime, s.EndTime}
		// Matches the ON CONFLICT DO NOTHING behavior of the real insert.
		if _, exists := f.slots[key]; exists {
			continue
		}
		f.slots[key] = s.Status
	}
	return nil
}

func (f *fakeSlotRepo) DeleteAvailable(ctx context.Context, providerID uuid.UUID, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, status := range f.slots {
		if k.provider == providerID && k.date.Equal(date) && status == model.SlotStatusAvailable {
			delete(f.slots, k)
		}
	}
	return nil
}

func (f *fakeSlotRepo) ListAvailable(ctx context.Context, providerIDs []uuid.UUID, date time.Time) ([]*model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(providerIDs))
	for _, id := range providerIDs {
		wanted[id] = true
	}
	var out []*model.Slot
	for k, status := range f.slots {
		if status == model.SlotStatusAvailable && wanted[k.provider] && k.date.Equal(date) {
			out = append(out, &model.Slot{
				ProviderID: k.provider,
				Date:       k.date,
				StartTime:  k.start,
				EndTime:    k.end,
				Status:     status,
			})
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) Reserve(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := slotKey{providerID, date, startTime, endTime}
	if f.slots[k] != model.SlotStatusAvailable {
		return false, nil
	}
	f.slots[k] = model.SlotStatusBooked
	return true, nil
}

func (f *fakeSlotRepo) Release(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := slotKey{providerID, date, startTime, endTime}
	if f.slots[k] != model.SlotStatusBooked {
		return false, nil
	}
	f.slots[k] = model.SlotStatusAvailable
	return true, nil
}

type fakeProviderRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.ProviderProfile
	services map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{
		profiles: make(map[uuid.UUID]*model.ProviderProfile),
		services: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (f *fakeProviderRepo) add(profile *model.ProviderProfile, serviceIDs ...uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.UserID] = profile
	offered := make(map[uuid.UUID]bool)
	for _, id := range serviceIDs {
		offered[id] = true
	}
	f.services[profile.UserID] = offered
}

func (f *fakeProviderRepo) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*model.ProviderProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, assert.AnError
	}
	return p, nil
}

func (f *fakeProviderRepo) eligible(city string, serviceID *uuid.UUID) []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range f.profiles {
		if !p.Approved || !p.Online || p.City != city {
			continue
		}
		if serviceID != nil && !f.services[id][*serviceID] {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeProviderRepo) ListEligibleByCity(ctx context.Context, city string) ([]uuid.UUID, error) {
	return f.eligible(city, nil), nil
}

func (f *fakeProviderRepo) ListEligibleByCityAndService(ctx context.Context, city string, serviceID uuid.UUID) ([]uuid.UUID, error) {
	return f.eligible(city, &serviceID), nil
}

func (f *fakeProviderRepo) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return assert.AnError
	}
	p.Online = online
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func eligibleProvider(providers *fakeProviderRepo, city string, serviceIDs ...uuid.UUID) uuid.UUID {
	id := uuid.New()
	providers.add(&model.ProviderProfile{
		UserID:   id,
		City:     city,
		Approved: true,
		Online:   true,
	}, serviceIDs...)
	return id
}

func day(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPublishWindowGeneratesHourlySlots(t *testing.T) {
	slots := newFakeSlotRepo()
	providers := newFakeProviderRepo()
	svc := NewService(slots, providers, passthroughTx{}, testLogger())

	providerID := eligibleProvider(providers, "Mumbai")
	date := day("2026-09-10")

	require.NoError(t, svc.PublishWindow(context.Background(), providerID, date, date, "09:00", "12:00"))

	listed, err := slots.ListAvailable(context.Background(), []uuid.UUID{providerID}, date)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	starts := make(map[string]string)
	for _, s := range listed {
		starts[s.StartTime] = s.EndTime
	}
	assert.Equal(t, map[string]string{
		"09:00": "10:00",
		"10:00": "11:00",
		"11:00": "12:00",
	}, starts)
}

func TestPublishWindowCoversEveryDateInRange(t *testing.T) {
	slots := newFakeSlotRepo()
	providers := newFakeProviderRepo()
	svc := NewService(slots, providers, passthroughTx{}, testLogger())

	providerID := eligibleProvider(providers, "Mumbai")
	from, to := day("2026-09-10"), day("2026-09-12")

	require.NoError(t, svc.PublishWindow(context.Background(), providerID, from, to, "10:00", "12:00"))

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		listed, err := slots.ListAvailable(context.Background(), []uuid.UUID{providerID}, d)
		require.NoError(t, err)
		assert.Len(t, listed, 2, "date %s", d.Format("2006-01-02"))
	}
}

func TestPublishWindowRepublishKeepsBookedSlots(t *testing.T) {
	slots := newFakeSlotRepo()
	providers := newFakeProviderRepo()
	svc := NewService(slots, providers, passthroughTx{}, testLogger())

	providerID := eligibleProvider(providers, "Mumbai")
	date := day("2026-09-10")

	require.NoError(t, svc.PublishWindow(context.Background(), providerID, date, date, "09:00", "12:00"))

	ok, err := slots.Reserve(context.Background(), providerID, date, "10:00", "11:00")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.PublishWindow(context.Background(), providerID, date, date, "09:00", "12:00"))

	// The booked 10:00 row must survive; republished rows fill the rest.
	ok, err = slots.Reserve(context.Background(), providerID, date, "10:00", "11:00")
	require.NoError(t, err)
	assert.False(t, ok, "booked slot must not be recreated as available")

	ok, err = slots.Reserve(context.Background(), providerID, date, "09:00", "10:00")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPublishWindowValidation(t *testing.T) {
	slots := newFakeSlotRepo()
	providers := newFakeProviderRepo()
	svc := NewService(slots, providers, passthroughTx{}, testLogger())
	providerID := eligibleProvider(providers, "Mumbai")

	tests := []struct {
		name             string
		from, to         string
		start, end       string
	}{
		{"from after to", "2026-09-12", "2026-09-10", "09:00", "12:00"},
		{"start equals end", "2026-09-10", "2026-09-10", "09:00", "09:00"},
		{"start after end", "2026-09-10", "2026-09-10", "12:00", "09:00"},
		{"bad start format", "2026-09-10", "2026-09-10", "9am", "12:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.PublishWindow(context.Background(), providerID, day2(tt.from), day2(tt.to), tt.start, tt.end)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

// day2 tolerates unparseable dates for the validation table.
func day2(value string) time.Time {
	d, _ := time.Parse("2006-01-02", value)
	return d
}

func TestPublishWindowRequiresApprovedOnlineProvider(t *testing.T) {
	slots := newFakeSlotRepo()
	providers := newFakeProviderRepo()
	svc := NewService(slots, providers, passthroughTx{}, testLogger())
	date := day("2026-09-10")

	offline := uuid.New()
	providers.add(&model.ProviderProfile{UserID: offline, City: "Mumbai", Approved: true, Online: false})
	assert.ErrorIs(t, svc.PublishWindow(context.Background(), offline, date, date, "09:00", "12:00"), ErrNotEligible)

	unapproved := uuid.New()
	providers.add(&model.ProviderProfile{UserID: unapproved, City: "Mumbai", Approved: false, Online: true})
	assert.ErrorIs(t, svc.PublishWindow(context.Background(), unapproved, date, date, "09:00", "12:00"), ErrNotEligible)

	assert.ErrorIs(t, svc.PublishWindow(context.Background(), uuid.New(), date, date, "09:00", "12:00"), ErrProviderNotFound)
}

func TestQueryAvailableGroupsByWindow(t *testing.T) {
	slots := newFakeSlotRepo()
	providers := newFakeProviderRepo()
	svc := NewService(slots, providers, passthroughTx{}, testLogger())

	serviceID := uuid.New()
	date := day("2026-09-10")

	p1 := eligibleProvider(providers, "Mumbai", serviceID)
	p2 := eligibleProvider(providers, "Mumbai", serviceID)

	require.NoError(t, svc.PublishWindow(context.Background(), p1, date, date, "09:00", "11:00"))
	require.NoError(t, svc.PublishWindow(context.Background(), p2, date, date, "10:00", "12:00"))

	buckets, err := svc.QueryAvailable(context.Background(), serviceID, date, "Mumbai")
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, model.SlotBucket{StartTime: "09:00", EndTime: "10:00", Providers: 1}, buckets[0])
	assert.Equal(t, model.SlotBucket{StartTime: "10:00", EndTime: "11:00", Providers: 2}, buckets[1])
	assert.Equal(t, model.SlotBucket{StartTime: "11:00", EndTime: "12:00", Providers: 1}, buckets[2])
}

func TestQueryAvailableExcludesBookedSlots(t *testing.T) {
	slots := newFakeSlotRepo()
	providers := newFakeProviderRepo()
	svc := NewService(slots, providers, passthroughTx{}, testLogger())

	serviceID := uuid.New()
	date := day("2026-09-10")
	providerID := eligibleProvider(providers, "Mumbai", serviceID)

	require.NoError(t, svc.PublishWindow(context.Background(), providerID, date, date, "09:00", "11:00"))

	ok, err := slots.Reserve(context.Background(), providerID, date, "09:00", "10:00")
	require.NoError(t, err)
	require.True(t, ok)

	buckets, err := svc.QueryAvailable(context.Background(), serviceID, date, "Mumbai")
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "10:00", buckets[0].StartTime)
}

func TestQueryAvailableRequiresCity(t *testing.T) {
	svc := NewService(newFakeSlotRepo(), newFakeProviderRepo(), passthroughTx{}, testLogger())

	_, err := svc.QueryAvailable(context.Background(), uuid.New(), day("2026-09-10"), "")
	assert.ErrorIs(t, err, ErrCityRequired)
}

func TestQueryAvailableNoEligibleProviders(t *testing.T) {
	svc := NewService(newFakeSlotRepo(), newFakeProviderRepo(), passthroughTx{}, testLogger())

	buckets, err := svc.QueryAvailable(context.Background(), uuid.New(), day("2026-09-10"), "Mumbai")
	require.NoError(t, err)
	assert.Empty(t, buckets)
}
