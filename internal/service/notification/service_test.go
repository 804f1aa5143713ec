package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servease/booking-api/internal/model"
)

type fakeNotificationRepo struct {
	rows map[[2]uuid.UUID]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{rows: make(map[[2]uuid.UUID]*model.Notification)}
}

func (f *fakeNotificationRepo) Upsert(ctx context.Context, userID, bookingID uuid.UUID, message string) error {
	key := [2]uuid.UUID{userID, bookingID}
	if existing, ok := f.rows[key]; ok {
		existing.Message = message
		existing.ReadAt = nil
		return nil
	}
	f.rows[key] = &model.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		BookingID: &bookingID,
		Message:   message,
	}
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range f.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxRepo) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	return nil
}

func TestNotifyStoresRowAndOutboxEvent(t *testing.T) {
	repo := newFakeNotificationRepo()
	outbox := &fakeOutboxRepo{}
	svc := NewService(repo, outbox)

	userID, bookingID := uuid.New(), uuid.New()
	require.NoError(t, svc.Notify(context.Background(), userID, bookingID, "Your booking was accepted."))

	rows, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Your booking was accepted.", rows[0].Message)

	require.Len(t, outbox.events, 1)
	assert.Equal(t, EventTypeBookingNotification, outbox.events[0].EventType)

	var event model.NotificationEvent
	require.NoError(t, json.Unmarshal(outbox.events[0].Payload, &event))
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, bookingID, event.BookingID)
	assert.Equal(t, "Your booking was accepted.", event.Message)
}

func TestNotifyKeepsOneRowPerBooking(t *testing.T) {
	repo := newFakeNotificationRepo()
	outbox := &fakeOutboxRepo{}
	svc := NewService(repo, outbox)

	userID, bookingID := uuid.New(), uuid.New()
	require.NoError(t, svc.Notify(context.Background(), userID, bookingID, "first"))
	require.NoError(t, svc.Notify(context.Background(), userID, bookingID, "second"))

	rows, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].Message)

	// Every send still produces its own outbox event.
	assert.Len(t, outbox.events, 2)
}
