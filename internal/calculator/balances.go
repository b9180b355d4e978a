package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
)

// CounterpartyBalance is the net position between the current user and one other person.
type CounterpartyBalance struct {
	Email string
	Name  string

	// OwesYou is what this person owes the user on expenses the user created.
	OwesYou decimal.Decimal

	// YouOwe is what the user owes this person on expenses they created.
	YouOwe decimal.Decimal

	// Net is OwesYou - YouOwe. Positive = they owe you, negative = you owe them.
	Net decimal.Decimal
}

// ComputeBalances breaks the outstanding amounts of ComputeMetrics down per counterparty.
//
// Algorithm:
//   - Skip settled expenses
//   - Expenses created by the user: every participant owes their amount to the user
//   - Expenses created by someone else where the user participates: the user owes
//     their own amount to the creator
//   - Net = owes you - you owe, rounded to cents at the end
//
// Results are ordered by descending absolute net, then by email.
func ComputeBalances(expenses []models.Expense, currentUserID string) []CounterpartyBalance {
	balances := make(map[string]*CounterpartyBalance)

	get := func(email, name string) *CounterpartyBalance {
		b, ok := balances[email]
		if !ok {
			b = &CounterpartyBalance{Email: email, Name: name, OwesYou: decimal.Zero, YouOwe: decimal.Zero}
			balances[email] = b
		}
		if b.Name == "" {
			b.Name = name
		}
		return b
	}

	for i := range expenses {
		e := &expenses[i]
		if e.Status == models.StatusSettled {
			continue
		}

		if e.IsCreator(currentUserID) {
			for _, p := range e.Participants {
				if p.Email == currentUserID {
					continue
				}
				b := get(p.Email, p.Name)
				b.OwesYou = b.OwesYou.Add(p.Amount)
			}
			continue
		}

		if p, ok := e.Participant(currentUserID); ok {
			b := get(e.CreatorID, e.CreatorName)
			b.YouOwe = b.YouOwe.Add(p.Amount)
		}
	}

	result := make([]CounterpartyBalance, 0, len(balances))
	for _, b := range balances {
		b.OwesYou = models.RoundCents(b.OwesYou)
		b.YouOwe = models.RoundCents(b.YouOwe)
		b.Net = b.OwesYou.Sub(b.YouOwe)
		result = append(result, *b)
	}

	sort.Slice(result, func(i, j int) bool {
		ai, aj := result[i].Net.Abs(), result[j].Net.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return result[i].Email < result[j].Email
	})

	return result
}
