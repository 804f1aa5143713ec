package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/servease/booking-api/internal/model"
	"github.com/servease/booking-api/pkg/security"
)

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*model.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[uuid.UUID]*model.Booking)}
}

func (f *fakeBookingStore) put(b *model.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
}

func (f *fakeBookingStore) Create(ctx context.Context, b *model.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	f.put(b)
	return nil
}

func (f *fakeBookingStore) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, assert.AnError
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookingStore) Update(ctx context.Context, b *model.Booking) error {
	f.put(b)
	return nil
}

func (f *fakeBookingStore) AssignIfPending(ctx context.Context, bookingID, providerID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.Status != model.BookingStatusPending {
		return false, nil
	}
	b.ProviderID = &providerID
	b.Status = model.BookingStatusAccepted
	return true, nil
}

func (f *fakeBookingStore) MarkStarted(ctx context.Context, bookingID uuid.UUID, verifiedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.Status != model.BookingStatusAccepted || b.StartOTPVerifiedAt != nil {
		return false, nil
	}
	b.Status = model.BookingStatusStarted
	b.StartOTPVerifiedAt = &verifiedAt
	return true, nil
}

func (f *fakeBookingStore) SetStartOTP(ctx context.Context, bookingID uuid.UUID, hash string, generatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return assert.AnError
	}
	b.StartOTPHash = &hash
	b.StartOTPGeneratedAt = &generatedAt
	b.StartOTPVerifiedAt = nil
	return nil
}

func (f *fakeBookingStore) HasOverlap(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time, statuses []model.BookingStatus) (bool, error) {
	return false, nil
}

func (f *fakeBookingStore) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookingStore) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookingStore) ListHistory(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	return nil, nil
}

func acceptedBooking(store *fakeBookingStore) *model.Booking {
	providerID := uuid.New()
	b := &model.Booking{
		CustomerID: uuid.New(),
		ProviderID: &providerID,
		Status:     model.BookingStatusAccepted,
	}
	b.ID = uuid.New()
	store.put(b)
	return b
}

func TestGateIssueGeneratesFourDigitCode(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Len(t, code, Digits)
	assert.Regexp(t, `^\d{4}$`, code)

	stored, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StartOTPHash)
	assert.NotEqual(t, code, *stored.StartOTPHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.StartOTPHash), []byte(code)))
}

func TestGateVerifyHappyPath(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	fresh, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)

	require.NoError(t, gate.Verify(context.Background(), fresh, code))

	started, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusStarted, started.Status)
	assert.NotNil(t, started.StartOTPVerifiedAt)
}

func TestGateVerifyAcceptsWhitespacePaddedCode(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	fresh, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.NoError(t, gate.Verify(context.Background(), fresh, "  "+code+" "))
}

func TestGateVerifyWrongCode(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	wrong := "0000"
	if wrong == code {
		wrong = "0001"
	}

	fresh, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, gate.Verify(context.Background(), fresh, wrong), ErrInvalidCode)

	unchanged, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusAccepted, unchanged.Status)
}

func TestGateVerifyRequiresAcceptedStatus(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)

	for _, status := range []model.BookingStatus{
		model.BookingStatusPending,
		model.BookingStatusStarted,
		model.BookingStatusCompleted,
		model.BookingStatusCancelled,
	} {
		b := acceptedBooking(store)
		b.Status = status
		assert.ErrorIs(t, gate.Verify(context.Background(), b, "1234"), ErrInvalidState, "status %s", status)
	}
}

func TestGateVerifyWithoutIssuedCode(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	assert.ErrorIs(t, gate.Verify(context.Background(), booking, "1234"), ErrNotIssued)
}

func TestGateVerifyIsSingleUse(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	fresh, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	require.NoError(t, gate.Verify(context.Background(), fresh, code))

	used, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, gate.Verify(context.Background(), used, code), ErrAlreadyVerified)
}

func TestGateVerifyLosingRacerGetsAlreadyVerified(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	// Both callers read the same snapshot before either one verifies. The
	// second conditional write must lose even though the code is correct.
	snapshot1, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	snapshot2, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)

	require.NoError(t, gate.Verify(context.Background(), snapshot1, code))
	assert.ErrorIs(t, gate.Verify(context.Background(), snapshot2, code), ErrAlreadyVerified)
}

func TestGateVerifyExpiredCode(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 10*time.Minute)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	stale := time.Now().Add(-11 * time.Minute)
	fresh, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	fresh.StartOTPGeneratedAt = &stale

	assert.ErrorIs(t, gate.Verify(context.Background(), fresh, code), ErrExpired)
}

func TestGateZeroTTLDisablesExpiry(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	ancient := time.Now().Add(-24 * time.Hour)
	fresh, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	fresh.StartOTPGeneratedAt = &ancient

	assert.NoError(t, gate.Verify(context.Background(), fresh, code))
}

func TestGateReissueInvalidatesOldCode(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	oldCode, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	fresh, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	newCode, err := gate.Reissue(context.Background(), fresh)
	require.NoError(t, err)

	latest, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)

	if oldCode != newCode {
		assert.ErrorIs(t, gate.Verify(context.Background(), latest, oldCode), ErrInvalidCode)
	}
	assert.NoError(t, gate.Verify(context.Background(), latest, newCode))
}

func TestGateReissueRejectedAfterVerification(t *testing.T) {
	store := newFakeBookingStore()
	gate := NewGate(store, security.NewBcryptHasher(bcrypt.MinCost), 0)
	booking := acceptedBooking(store)

	code, err := gate.Issue(context.Background(), booking.ID)
	require.NoError(t, err)

	fresh, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	require.NoError(t, gate.Verify(context.Background(), fresh, code))

	verified, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	_, err = gate.Reissue(context.Background(), verified)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}
