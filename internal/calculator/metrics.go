package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
)

// Metrics are the outstanding-balance figures shown for the current user.
type Metrics struct {
	// TotalExpenses counts unsettled expenses.
	TotalExpenses int `json:"total_expenses"`

	// OwedToYou is what participants owe on unsettled expenses the user created.
	// The creator's own implicit share is not included.
	OwedToYou decimal.Decimal `json:"owed_to_you"`

	// YouOwe is the user's own share on unsettled expenses created by someone else.
	YouOwe decimal.Decimal `json:"you_owe"`
}

// ComputeMetrics derives the dashboard metrics for currentUserID from the full
// expense list.
//
// Settled expenses are dropped before anything else and contribute nothing.
// Participants are matched by email. Both sums are rounded to cents once, at the
// end, not per expense: when stored amounts carry sub-cent precision the displayed
// sum can differ from the sum of displayed shares by at most half a cent per
// contributing expense. That is acceptable for display and intentionally left as is.
func ComputeMetrics(expenses []models.Expense, currentUserID string) Metrics {
	owedToYou := decimal.Zero
	youOwe := decimal.Zero
	total := 0

	for i := range expenses {
		e := &expenses[i]
		if e.Status == models.StatusSettled {
			continue
		}
		total++

		if e.IsCreator(currentUserID) {
			owedToYou = owedToYou.Add(e.ParticipantTotal())
			continue
		}

		if p, ok := e.Participant(currentUserID); ok {
			youOwe = youOwe.Add(p.Amount)
		}
	}

	return Metrics{
		TotalExpenses: total,
		OwedToYou:     models.RoundCents(owedToYou),
		YouOwe:        models.RoundCents(youOwe),
	}
}
