// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/receiptsplit/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ExpenseStore persists expenses together with their participants and receipt items.
type ExpenseStore interface {
	// CreateExpense persists a new expense.
	// The ID and CreatedAt fields are populated by the store when empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense by its ID.
	// Returns ErrNotFound if the expense does not exist.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// ListExpensesForUser returns every expense created by or involving userID,
	// newest first.
	ListExpensesForUser(ctx context.Context, userID string) ([]models.Expense, error)

	// UpdateExpenseStatus sets the status of an expense.
	// Returns ErrNotFound if the expense does not exist.
	UpdateExpenseStatus(ctx context.Context, id string, status models.Status) error

	// DeleteExpense removes an expense with its participants and items.
	// Returns ErrNotFound if the expense does not exist.
	DeleteExpense(ctx context.Context, id string) error
}

// UserStore persists user accounts keyed by email.
type UserStore interface {
	// UpsertUser creates the user or replaces its name, phone and password hash.
	UpsertUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound for unknown emails.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// NotificationStore persists per-recipient notifications.
type NotificationStore interface {
	// CreateNotifications stores every notification in one transaction.
	CreateNotifications(ctx context.Context, notifications []*models.Notification) error

	// ListNotifications returns up to limit notifications for recipient, newest first.
	ListNotifications(ctx context.Context, recipient string, limit int) ([]models.Notification, error)

	// MarkNotificationsRead marks all unread notifications of recipient as read
	// and returns how many changed.
	MarkNotificationsRead(ctx context.Context, recipient string) (int64, error)
}

// Store is the full persistence layer used by the server.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	ExpenseStore
	UserStore
	NotificationStore

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
