package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the payment state of an expense.
type Status string

const (
	// StatusPending is the initial state: nobody has claimed payment yet.
	StatusPending Status = "pending"
	// StatusPendingReview means a participant claimed payment and the creator has not confirmed it.
	StatusPendingReview Status = "pending_review"
	// StatusSettled is terminal. Settled expenses are excluded from all outstanding balances.
	StatusSettled Status = "settled"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusPending, StatusPendingReview, StatusSettled}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPendingReview, StatusSettled:
		return true
	}
	return false
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.TrimSpace(v))
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of %v", v, Statuses)
	}
	return s, nil
}

// Expense is a receipt or manual entry split between its creator and participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// CreatorID is the email of the user who created the expense.
	// The creator always pays one implicit share and is never listed in Participants.
	CreatorID string `json:"user_id"`

	// CreatorName is the creator's display name.
	CreatorName string `json:"created_by_name"`

	// Description is the free-text label (e.g., "Dinner at HaiDiLao").
	Description string `json:"description"`

	// TotalAmount is the full amount paid by the creator.
	TotalAmount decimal.Decimal `json:"total_amount"`

	// Participants are the non-creator parties, in the order they were selected.
	Participants []Participant `json:"participants"`

	// ReceiptURL points at the stored receipt image, if the expense came from an upload.
	ReceiptURL *string `json:"receipt_url,omitempty"`

	// Items, Tax, Tip and Subtotal are the optional receipt breakdown.
	// Each one is independently present or absent.
	Items    []ReceiptItem    `json:"items,omitempty"`
	Tax      *decimal.Decimal `json:"tax,omitempty"`
	Tip      *decimal.Decimal `json:"tip,omitempty"`
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`

	// Status is the payment state.
	Status Status `json:"status"`

	// CreatedAt is when the backend accepted the expense.
	CreatedAt time.Time `json:"created_at"`
}

// Participant is a non-creator party owing Amount on an expense.
type Participant struct {
	Email  string          `json:"email" validate:"required,email"`
	Name   string          `json:"name" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

// ReceiptItem is a single purchased item on a receipt.
type ReceiptItem struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

// IsCreator reports whether userID created the expense.
func (e *Expense) IsCreator(userID string) bool {
	return userID != "" && e.CreatorID == userID
}

// Participant returns the participant entry for email.
func (e *Expense) Participant(email string) (Participant, bool) {
	for _, p := range e.Participants {
		if p.Email == email {
			return p, true
		}
	}
	return Participant{}, false
}

// IsParticipant reports whether email is listed as a participant.
func (e *Expense) IsParticipant(email string) bool {
	_, ok := e.Participant(email)
	return ok
}

// Involves reports whether userID created or participates in the expense.
func (e *Expense) Involves(userID string) bool {
	return e.IsCreator(userID) || e.IsParticipant(userID)
}

// ParticipantTotal sums the amounts owed by all participants.
func (e *Expense) ParticipantTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range e.Participants {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// HasReceiptDetails reports whether any part of the receipt breakdown is present.
func (e *Expense) HasReceiptDetails() bool {
	return len(e.Items) > 0 || e.Tax != nil || e.Tip != nil || e.Subtotal != nil
}

// CreateExpenseRequest is the payload accepted by the create endpoint.
type CreateExpenseRequest struct {
	Description  string           `json:"description" validate:"required"`
	TotalAmount  decimal.Decimal  `json:"total_amount" validate:"gt=0"`
	Participants []Participant    `json:"participants" validate:"min=1,dive"`
	ReceiptURL   *string          `json:"receipt_url"`
	Items        []ReceiptItem    `json:"items,omitempty" validate:"omitempty,dive"`
	Tax          *decimal.Decimal `json:"tax,omitempty"`
	Tip          *decimal.Decimal `json:"tip,omitempty"`
	Subtotal     *decimal.Decimal `json:"subtotal,omitempty"`
}

// StatusUpdate is the payload accepted by the update-status endpoint.
type StatusUpdate struct {
	Status Status `json:"status"`
}

// MessageResponse is the body of endpoints that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// ReminderResponse is returned after a payment reminder was sent.
type ReminderResponse struct {
	Message string `json:"message"`

	// Notified is the number of participants who received the reminder.
	Notified int `json:"notified"`
}
