// Package ledger holds the client's view of the expense list.
//
// The view has two tiers: the authoritative list from the last full fetch,
// and an overlay of statuses the client patched since then. Metrics are always
// computed from the authoritative tier; the merged view is for display.
package ledger

import (
	"github.com/mmynk/receiptsplit/internal/models"
)

// Event is a change applied to a Ledger.
type Event interface {
	apply(l *Ledger)
}

// Fetched replaces the authoritative list and drops every local patch.
type Fetched struct {
	Expenses []models.Expense
}

// StatusPatched records a status change the backend accepted.
type StatusPatched struct {
	ID     string
	Status models.Status
}

// Deleted drops an expense the backend deleted.
type Deleted struct {
	ID string
}

// Ledger is not safe for concurrent use; a dashboard owns exactly one.
type Ledger struct {
	authoritative []models.Expense
	overlay       map[string]models.Status
	fetched       bool
}

// New returns an empty ledger that has not been fetched yet.
func New() *Ledger {
	return &Ledger{overlay: make(map[string]models.Status)}
}

// Apply reduces ev into the ledger.
func (l *Ledger) Apply(ev Event) {
	ev.apply(l)
}

func (ev Fetched) apply(l *Ledger) {
	l.authoritative = append([]models.Expense(nil), ev.Expenses...)
	l.overlay = make(map[string]models.Status)
	l.fetched = true
}

func (ev StatusPatched) apply(l *Ledger) {
	if l.index(ev.ID) < 0 {
		return
	}
	l.overlay[ev.ID] = ev.Status
}

func (ev Deleted) apply(l *Ledger) {
	if i := l.index(ev.ID); i >= 0 {
		l.authoritative = append(l.authoritative[:i:i], l.authoritative[i+1:]...)
	}
	delete(l.overlay, ev.ID)
}

// Fetched reports whether at least one full fetch has been applied.
func (l *Ledger) Fetched() bool {
	return l.fetched
}

// Authoritative returns a copy of the last fetched list minus deletions.
func (l *Ledger) Authoritative() []models.Expense {
	return append([]models.Expense(nil), l.authoritative...)
}

// Expenses returns the display view: the authoritative list with local
// status patches applied.
func (l *Ledger) Expenses() []models.Expense {
	out := l.Authoritative()
	for i := range out {
		if s, ok := l.overlay[out[i].ID]; ok {
			out[i].Status = s
		}
	}
	return out
}

// Get returns the display view of a single expense.
func (l *Ledger) Get(id string) (models.Expense, bool) {
	i := l.index(id)
	if i < 0 {
		return models.Expense{}, false
	}
	e := l.authoritative[i]
	if s, ok := l.overlay[id]; ok {
		e.Status = s
	}
	return e, true
}

// Pending reports whether any local patch is waiting for a refetch.
func (l *Ledger) Pending() bool {
	return len(l.overlay) > 0
}

func (l *Ledger) index(id string) int {
	for i := range l.authoritative {
		if l.authoritative[i].ID == id {
			return i
		}
	}
	return -1
}
