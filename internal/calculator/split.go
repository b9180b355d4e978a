package calculator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/validation"
)

// CreatorShares is the number of equal shares the creator always pays.
// Splits are equal and include the creator: the divisor is participants + CreatorShares.
// This is a fixed business rule, not a parameter.
const CreatorShares = 1

var (
	ErrNegativeTotal        = errors.New("total amount cannot be negative")
	ErrNegativeCount        = errors.New("participant count cannot be negative")
	ErrNoParticipants       = errors.New("please select at least one participant")
	ErrDuplicateParticipant = errors.New("participant selected more than once")
)

// ContactError reports a selected participant without a usable email address.
type ContactError struct {
	Name    string
	Contact string
}

func (e *ContactError) Error() string {
	if strings.TrimSpace(e.Contact) == "" {
		return fmt.Sprintf("%s has no email address", e.Name)
	}
	return fmt.Sprintf("%s has an invalid email address: %q", e.Name, e.Contact)
}

// Selection is a participant as picked from the friends list, before an expense exists.
type Selection struct {
	ID       string
	Name     string
	Initials string
	Contact  string
}

// SelectionFromFriend converts a friends-list entry into a Selection.
func SelectionFromFriend(f models.Friend) Selection {
	return Selection{
		ID:       f.ID,
		Name:     f.Name,
		Initials: f.Initials,
		Contact:  f.Email,
	}
}

// ComputeSplit returns the equal per-person share of total, creator included,
// rounded to cents half away from zero.
//
// With participantCount = 0 the divisor is 1 and the result is total itself;
// callers must reject expenses without participants before reaching here.
func ComputeSplit(total decimal.Decimal, participantCount int) (decimal.Decimal, error) {
	if total.IsNegative() {
		return decimal.Zero, ErrNegativeTotal
	}
	if participantCount < 0 {
		return decimal.Zero, ErrNegativeCount
	}
	divisor := decimal.NewFromInt(int64(participantCount + CreatorShares))
	return models.RoundCents(total.Div(divisor)), nil
}

// BuildShares turns the selected participants into payment records, each owing
// the equal share of total.
//
// Every selection must carry a valid email contact. Emails are trimmed and
// lower-cased and must be unique within the list.
func BuildShares(total decimal.Decimal, selected []Selection) ([]models.Participant, error) {
	if len(selected) == 0 {
		return nil, ErrNoParticipants
	}

	share, err := ComputeSplit(total, len(selected))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(selected))
	participants := make([]models.Participant, 0, len(selected))
	for _, s := range selected {
		email := NormalizeEmail(s.Contact)
		if validation.Email(email) != nil {
			return nil, &ContactError{Name: s.Name, Contact: s.Contact}
		}
		if seen[email] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, email)
		}
		seen[email] = true

		participants = append(participants, models.Participant{
			Email:  email,
			Name:   strings.TrimSpace(s.Name),
			Amount: share,
		})
	}

	return participants, nil
}

// PerPersonAmount is the display share of an existing expense: total/(n+1),
// or the total itself when nobody else is on the expense.
func PerPersonAmount(e *models.Expense) decimal.Decimal {
	if len(e.Participants) == 0 {
		return models.RoundCents(e.TotalAmount)
	}
	share, err := ComputeSplit(e.TotalAmount, len(e.Participants))
	if err != nil {
		return decimal.Zero
	}
	return share
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
