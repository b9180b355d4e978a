package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/internal/telemetry"
	"github.com/mmynk/receiptsplit/internal/validation"
	"github.com/mmynk/receiptsplit/internal/workflow"
)

// ExpenseService implements expense creation, retrieval, status transitions,
// deletion and payment reminders.
type ExpenseService struct {
	store         storage.ExpenseStore
	notifications *NotificationService
	metrics       *telemetry.Metrics
	logger        *slog.Logger
}

func NewExpenseService(store storage.ExpenseStore, notifications *NotificationService, metrics *telemetry.Metrics, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{
		store:         store,
		notifications: notifications,
		metrics:       metrics,
		logger:        logger,
	}
}

// Create validates req and persists it as a pending expense owned by the caller.
// Every participant is notified that they were added.
func (s *ExpenseService) Create(ctx context.Context, caller Caller, req *models.CreateExpenseRequest) (*models.Expense, error) {
	if err := validateCreate(caller, req); err != nil {
		s.logger.Warn("Rejected expense", "user", caller.Email, "error", err)
		return nil, err
	}

	expense := &models.Expense{
		CreatorID:    caller.Email,
		CreatorName:  caller.Name,
		Description:  strings.TrimSpace(req.Description),
		TotalAmount:  req.TotalAmount,
		Participants: req.Participants,
		ReceiptURL:   req.ReceiptURL,
		Items:        req.Items,
		Tax:          req.Tax,
		Tip:          req.Tip,
		Subtotal:     req.Subtotal,
		Status:       models.StatusPending,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		s.logger.Error("Failed to create expense", "user", caller.Email, "error", err)
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	s.metrics.ExpenseCreated()

	if _, err := s.notifications.notify(ctx, models.NotificationExpenseAdded, caller, expense, participantsOf(expense)); err != nil {
		s.logger.Warn("Failed to notify participants", "expense_id", expense.ID, "error", err)
	}

	s.logger.Info("Expense created",
		"expense_id", expense.ID,
		"user", caller.Email,
		"total", expense.TotalAmount,
		"participants", len(expense.Participants),
	)
	return expense, nil
}

// validateCreate checks the payload and normalizes participant emails in place.
func validateCreate(caller Caller, req *models.CreateExpenseRequest) error {
	if req == nil {
		return newError(ErrInvalidArgument, "Request body is required")
	}
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.Struct(req); err != nil {
		return &Error{Kind: ErrInvalidArgument, Detail: err.Error()}
	}

	seen := make(map[string]bool, len(req.Participants))
	for i := range req.Participants {
		p := &req.Participants[i]
		p.Email = calculator.NormalizeEmail(p.Email)
		p.Name = strings.TrimSpace(p.Name)
		if p.Email == caller.Email {
			return newError(ErrInvalidArgument, "The creator is always included in the split and cannot be listed as a participant")
		}
		if seen[p.Email] {
			return newError(ErrInvalidArgument, "Duplicate participant: %s", p.Email)
		}
		seen[p.Email] = true
	}

	for name, v := range map[string]*decimal.Decimal{"tax": req.Tax, "tip": req.Tip, "subtotal": req.Subtotal} {
		if v != nil && v.IsNegative() {
			return newError(ErrInvalidArgument, "%s must not be negative", name)
		}
	}
	return nil
}

// List returns every expense created by or involving the caller, newest first.
func (s *ExpenseService) List(ctx context.Context, caller Caller) ([]models.Expense, error) {
	expenses, err := s.store.ListExpensesForUser(ctx, caller.Email)
	if err != nil {
		s.logger.Error("Failed to list expenses", "user", caller.Email, "error", err)
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	s.logger.Debug("Listed expenses", "user", caller.Email, "count", len(expenses))
	return expenses, nil
}

// Get returns an expense the caller created or participates in.
func (s *ExpenseService) Get(ctx context.Context, caller Caller, id string) (*models.Expense, error) {
	expense, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !expense.Involves(caller.Email) {
		return nil, newError(ErrPermissionDenied, "Not authorized to view this expense")
	}
	return expense, nil
}

// UpdateStatus applies a status transition requested by the caller. Requests for
// the current status succeed without writing.
func (s *ExpenseService) UpdateStatus(ctx context.Context, caller Caller, id, status string) (*models.Expense, error) {
	to, err := models.ParseStatus(status)
	if err != nil {
		return nil, newError(ErrInvalidArgument, "Invalid status. Must be one of: %s", joinStatuses())
	}

	expense, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := workflow.CheckTransition(expense, caller.Email, to)
	if err != nil {
		s.logger.Warn("Rejected status update", "expense_id", id, "user", caller.Email, "to", to, "error", err)
		return nil, transitionError(err)
	}
	if !changed {
		return expense, nil
	}

	if err := s.store.UpdateExpenseStatus(ctx, id, to); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(ErrNotFound, "Expense not found")
		}
		s.logger.Error("Failed to update status", "expense_id", id, "error", err)
		return nil, fmt.Errorf("failed to update expense status: %w", err)
	}
	from := expense.Status
	expense.Status = to
	s.metrics.StatusChanged(string(to))

	s.notifyTransition(ctx, caller, expense)

	s.logger.Info("Expense status updated", "expense_id", id, "user", caller.Email, "from", from, "to", to)
	return expense, nil
}

func (s *ExpenseService) notifyTransition(ctx context.Context, caller Caller, e *models.Expense) {
	var (
		kind       models.NotificationType
		recipients []recipientAmount
	)
	switch e.Status {
	case models.StatusPendingReview:
		p, _ := e.Participant(caller.Email)
		kind = models.NotificationPaymentReceived
		recipients = []recipientAmount{{Email: e.CreatorID, Amount: p.Amount}}
	case models.StatusSettled:
		kind = models.NotificationExpenseSettled
		recipients = participantsOf(e)
	default:
		return
	}
	if _, err := s.notifications.notify(ctx, kind, caller, e, recipients); err != nil {
		s.logger.Warn("Failed to send status notification", "expense_id", e.ID, "error", err)
	}
}

// Delete removes an expense the caller created or participates in.
func (s *ExpenseService) Delete(ctx context.Context, caller Caller, id string) error {
	expense, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !expense.Involves(caller.Email) {
		return newError(ErrPermissionDenied, "Not authorized to delete this expense")
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return newError(ErrNotFound, "Expense not found")
		}
		s.logger.Error("Failed to delete expense", "expense_id", id, "error", err)
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	s.logger.Info("Expense deleted", "expense_id", id, "user", caller.Email)
	return nil
}

// Remind sends a payment request to every participant. Only the creator of an
// unsettled expense may do this. It returns the number of participants notified.
func (s *ExpenseService) Remind(ctx context.Context, caller Caller, id string) (int, error) {
	expense, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := workflow.Check(expense, caller.Email, workflow.ActionSendReminder); err != nil {
		switch {
		case errors.Is(err, workflow.ErrAlreadySettled):
			return 0, newError(ErrConflict, "Expense is already settled")
		default:
			return 0, newError(ErrPermissionDenied, "Only the creator can send payment reminders")
		}
	}

	n, err := s.notifications.notify(ctx, models.NotificationPaymentRequested, caller, expense, participantsOf(expense))
	if err != nil {
		s.logger.Error("Failed to send reminder", "expense_id", id, "error", err)
		return 0, fmt.Errorf("failed to send reminder: %w", err)
	}
	s.metrics.ReminderSent()
	s.logger.Info("Payment reminder sent", "expense_id", id, "user", caller.Email, "notified", n)
	return n, nil
}

func (s *ExpenseService) load(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(ErrNotFound, "Expense not found")
		}
		s.logger.Error("Failed to load expense", "expense_id", id, "error", err)
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrInvalidStatus):
		return newError(ErrInvalidArgument, "Invalid status. Must be one of: %s", joinStatuses())
	case errors.Is(err, workflow.ErrCreatorOnly):
		return newError(ErrPermissionDenied, "Only the creator can mark expense as settled")
	case errors.Is(err, workflow.ErrParticipantOnly):
		return newError(ErrPermissionDenied, "Only participants can mark expense as pending review")
	case errors.Is(err, workflow.ErrNotInvolved):
		return newError(ErrPermissionDenied, "Not authorized to update this expense")
	case errors.Is(err, workflow.ErrAlreadySettled):
		return newError(ErrConflict, "Expense is already settled")
	default:
		return err
	}
}

func joinStatuses() string {
	names := make([]string, len(models.Statuses))
	for i, st := range models.Statuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
