package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/workflow"
)

// Button is an action shown on a card.
type Button struct {
	Action  workflow.Action
	Enabled bool
}

// CardParticipant is a participant as displayed on a card.
type CardParticipant struct {
	Name     string
	Email    string
	Initials string
	Amount   decimal.Decimal
	IsYou    bool
}

// Card is the display model of one expense for the session user.
type Card struct {
	ID          string
	Description string
	Total       decimal.Decimal

	// PerPerson is total/(participants+1), or the total when nobody else is on it.
	PerPerson decimal.Decimal

	// PaidBy is "You" for the session user's own expenses, else the creator's name.
	PaidBy    string
	IsCreator bool

	Status       models.Status
	Participants []CardParticipant

	ReceiptURL string
	Items      []models.ReceiptItem
	Tax        *decimal.Decimal
	Tip        *decimal.Decimal
	Subtotal   *decimal.Decimal

	Buttons   []Button
	CreatedAt time.Time
}

// Cards builds the display model for every expense, recomputing the role of
// the session user per expense.
func (d *Dashboard) Cards() []Card {
	expenses := d.ledger.Expenses()
	cards := make([]Card, 0, len(expenses))
	for i := range expenses {
		cards = append(cards, d.card(&expenses[i]))
	}
	return cards
}

func (d *Dashboard) card(e *models.Expense) Card {
	userID := d.session.UserID
	isCreator := workflow.RoleOf(e, userID) == workflow.RoleCreator

	c := Card{
		ID:          e.ID,
		Description: e.Description,
		Total:       e.TotalAmount,
		PerPerson:   calculator.PerPersonAmount(e),
		PaidBy:      paidBy(e, isCreator),
		IsCreator:   isCreator,
		Status:      e.Status,
		Items:       e.Items,
		Tax:         e.Tax,
		Tip:         e.Tip,
		Subtotal:    e.Subtotal,
		CreatedAt:   e.CreatedAt,
	}
	if e.ReceiptURL != nil {
		c.ReceiptURL = *e.ReceiptURL
	}

	for _, p := range e.Participants {
		c.Participants = append(c.Participants, CardParticipant{
			Name:     p.Name,
			Email:    p.Email,
			Initials: models.Initials(p.Name),
			Amount:   p.Amount,
			IsYou:    p.Email == userID,
		})
	}

	for _, a := range workflow.Buttons(e, userID) {
		c.Buttons = append(c.Buttons, Button{
			Action:  a,
			Enabled: workflow.Check(e, userID, a) == nil,
		})
	}
	return c
}

func paidBy(e *models.Expense, isCreator bool) string {
	switch {
	case isCreator:
		return "You"
	case e.CreatorName != "":
		return e.CreatorName
	default:
		return e.CreatorID
	}
}
