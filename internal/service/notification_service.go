package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/internal/telemetry"
)

// DefaultNotificationLimit caps how many notifications List returns.
const DefaultNotificationLimit = 50

// NotificationService records expense events for their recipients.
type NotificationService struct {
	store   storage.NotificationStore
	metrics *telemetry.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewNotificationService(store storage.NotificationStore, metrics *telemetry.Metrics, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// recipientAmount is one recipient of an event and the amount relevant to them.
type recipientAmount struct {
	Email  string
	Amount decimal.Decimal
}

// notify stores one notification of kind per recipient. The actor never notifies
// themselves.
func (s *NotificationService) notify(ctx context.Context, kind models.NotificationType, actor Caller, e *models.Expense, recipients []recipientAmount) (int, error) {
	now := s.now().UTC()
	batch := make([]*models.Notification, 0, len(recipients))
	for _, r := range recipients {
		if r.Email == "" || r.Email == actor.Email {
			continue
		}
		batch = append(batch, &models.Notification{
			Recipient: r.Email,
			Type:      kind,
			From:      actor.displayName(),
			ExpenseID: e.ID,
			Target:    e.Description,
			Amount:    r.Amount,
			Unread:    true,
			CreatedAt: now,
		})
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.store.CreateNotifications(ctx, batch); err != nil {
		return 0, fmt.Errorf("failed to create notifications: %w", err)
	}
	s.metrics.NotificationsCreated(string(kind), len(batch))
	s.logger.Debug("Notifications created", "type", kind, "expense_id", e.ID, "count", len(batch))
	return len(batch), nil
}

// participantsOf returns every participant of e with their share.
func participantsOf(e *models.Expense) []recipientAmount {
	out := make([]recipientAmount, len(e.Participants))
	for i, p := range e.Participants {
		out[i] = recipientAmount{Email: p.Email, Amount: p.Amount}
	}
	return out
}

// List returns the caller's most recent notifications.
func (s *NotificationService) List(ctx context.Context, caller Caller, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > DefaultNotificationLimit {
		limit = DefaultNotificationLimit
	}
	notifications, err := s.store.ListNotifications(ctx, caller.Email, limit)
	if err != nil {
		s.logger.Error("Failed to list notifications", "user", caller.Email, "error", err)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks every unread notification of the caller as read.
func (s *NotificationService) MarkRead(ctx context.Context, caller Caller) (int64, error) {
	n, err := s.store.MarkNotificationsRead(ctx, caller.Email)
	if err != nil {
		s.logger.Error("Failed to mark notifications read", "user", caller.Email, "error", err)
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
