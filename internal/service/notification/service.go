package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/model"
	"github.com/servease/booking-api/internal/repository"
)

// EventTypeBookingNotification is the outbox event type consumed by the
// notification dispatcher worker.
const EventTypeBookingNotification = "booking_notification"

// Service is the fire-and-forget notification sink. Each call upserts the
// in-app notification row and records an outbox event for asynchronous
// delivery. Both writes join the caller's transaction when one is active,
// so a rolled-back allocation never leaks a notification.
type Service struct {
	repo   repository.NotificationRepository
	outbox repository.OutboxRepository
}

func NewService(repo repository.NotificationRepository, outbox repository.OutboxRepository) *Service {
	return &Service{
		repo:   repo,
		outbox: outbox,
	}
}

func (s *Service) Notify(ctx context.Context, userID, bookingID uuid.UUID, message string) error {
	if err := s.repo.Upsert(ctx, userID, bookingID, message); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	payload, err := json.Marshal(model.NotificationEvent{
		UserID:    userID,
		BookingID: bookingID,
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: EventTypeBookingNotification,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("failed to enqueue notification event: %w", err)
	}
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
