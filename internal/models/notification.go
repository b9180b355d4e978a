package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationType classifies what happened.
type NotificationType string

const (
	// NotificationExpenseAdded tells a participant they were added to an expense.
	NotificationExpenseAdded NotificationType = "expense_added"
	// NotificationPaymentRequested is a creator's reminder to a participant.
	NotificationPaymentRequested NotificationType = "payment_requested"
	// NotificationPaymentReceived tells the creator a participant marked their share paid.
	NotificationPaymentReceived NotificationType = "payment_received"
	// NotificationExpenseSettled tells participants the creator settled the expense.
	NotificationExpenseSettled NotificationType = "expense_settled"
)

// Notification is an event delivered to a single recipient.
type Notification struct {
	ID        string           `json:"id"`
	Recipient string           `json:"recipient"`
	Type      NotificationType `json:"type"`

	// From is the display name of the user who triggered the event.
	From string `json:"from"`

	ExpenseID string `json:"expense_id"`

	// Target is the expense description.
	Target string `json:"target"`

	// Amount is the recipient-relevant amount (their share, or the sum owed to them).
	Amount decimal.Decimal `json:"amount"`

	Unread    bool      `json:"unread"`
	CreatedAt time.Time `json:"created_at"`
}
