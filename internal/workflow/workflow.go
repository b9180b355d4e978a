// Package workflow implements the expense status state machine:
//
//	pending ──MarkPaid (participant)──▶ pending_review ──MarkSettled (creator)──▶ settled
//	   └──────────────────MarkSettled (creator)───────────────────────────────────▲
//
// settled is terminal. SendReminder never changes state.
package workflow

import (
	"errors"
	"fmt"

	"github.com/mmynk/receiptsplit/internal/models"
)

// Action is something a user can do to an expense.
type Action string

const (
	ActionMarkPaid     Action = "mark_paid"
	ActionMarkSettled  Action = "mark_settled"
	ActionSendReminder Action = "send_reminder"
)

// Role is a user's relationship to a single expense.
type Role int

const (
	RoleOutsider Role = iota
	RoleCreator
	RoleParticipant
)

func (r Role) String() string {
	switch r {
	case RoleCreator:
		return "creator"
	case RoleParticipant:
		return "participant"
	default:
		return "outsider"
	}
}

var (
	ErrAlreadySettled  = errors.New("expense is already settled")
	ErrAlreadyClaimed  = errors.New("payment is already pending review")
	ErrCreatorOnly     = errors.New("only the creator can do this")
	ErrParticipantOnly = errors.New("only participants can mark an expense as paid")
	ErrNotInvolved     = errors.New("you are not part of this expense")
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidStatus   = errors.New("invalid status")
)

// RoleOf determines userID's role on e. It is cheap and must be recomputed
// whenever the expense or the identity changes.
func RoleOf(e *models.Expense, userID string) Role {
	switch {
	case e.IsCreator(userID):
		return RoleCreator
	case e.IsParticipant(userID):
		return RoleParticipant
	default:
		return RoleOutsider
	}
}

// Target returns the status an action moves the expense to.
// ok is false for actions that do not change state.
func Target(a Action) (status models.Status, ok bool) {
	switch a {
	case ActionMarkPaid:
		return models.StatusPendingReview, true
	case ActionMarkSettled:
		return models.StatusSettled, true
	default:
		return "", false
	}
}

// Check reports whether userID may perform a on e right now.
func Check(e *models.Expense, userID string, a Action) error {
	role := RoleOf(e, userID)

	switch a {
	case ActionMarkPaid:
		if role != RoleParticipant {
			return ErrParticipantOnly
		}
		if e.Status == models.StatusSettled {
			return ErrAlreadySettled
		}
		if e.Status == models.StatusPendingReview {
			return ErrAlreadyClaimed
		}
		return nil

	case ActionMarkSettled, ActionSendReminder:
		if role != RoleCreator {
			return ErrCreatorOnly
		}
		if e.Status == models.StatusSettled {
			return ErrAlreadySettled
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
}

// Available lists the actions userID may currently perform on e, in display order.
func Available(e *models.Expense, userID string) []Action {
	var actions []Action
	for _, a := range []Action{ActionSendReminder, ActionMarkSettled, ActionMarkPaid} {
		if Check(e, userID, a) == nil {
			actions = append(actions, a)
		}
	}
	return actions
}

// Buttons returns the actions shown to userID's role, whether or not they are
// currently enabled. Creators see reminder and settle, participants see mark-paid.
func Buttons(e *models.Expense, userID string) []Action {
	switch RoleOf(e, userID) {
	case RoleCreator:
		return []Action{ActionSendReminder, ActionMarkSettled}
	case RoleParticipant:
		return []Action{ActionMarkPaid}
	default:
		return nil
	}
}

// CheckTransition is the server-side guard for a status update requested by userID.
//
// Rules:
//   - only the creator may settle
//   - only a non-creator participant may move to pending_review
//   - the creator or a participant may move back to pending
//   - nothing leaves settled
//
// changed is false when the expense already has the requested status; such
// updates are accepted as no-ops.
func CheckTransition(e *models.Expense, userID string, to models.Status) (changed bool, err error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	role := RoleOf(e, userID)

	switch to {
	case models.StatusSettled:
		if role != RoleCreator {
			return false, fmt.Errorf("%w: only the creator can mark an expense as settled", ErrCreatorOnly)
		}
	case models.StatusPendingReview:
		if role != RoleParticipant {
			return false, ErrParticipantOnly
		}
	case models.StatusPending:
		if role == RoleOutsider {
			return false, ErrNotInvolved
		}
	}

	if e.Status == to {
		return false, nil
	}
	if e.Status == models.StatusSettled {
		return false, ErrAlreadySettled
	}
	return true, nil
}
