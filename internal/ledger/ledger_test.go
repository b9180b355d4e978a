package ledger

import (
	"testing"

	"github.com/mmynk/receiptsplit/internal/models"
)

func fixtures() []models.Expense {
	return []models.Expense{
		{ID: "e1", Description: "Dinner", Status: models.StatusPending},
		{ID: "e2", Description: "Taxi", Status: models.StatusPendingReview},
		{ID: "e3", Description: "Hotel", Status: models.StatusPending},
	}
}

func TestLedger_Fetched(t *testing.T) {
	l := New()
	if l.Fetched() {
		t.Fatal("new ledger should not be fetched")
	}
	if len(l.Expenses()) != 0 {
		t.Fatal("new ledger should be empty")
	}

	in := fixtures()
	l.Apply(Fetched{Expenses: in})
	in[0].Description = "mutated"

	got := l.Authoritative()
	if len(got) != 3 || got[0].Description != "Dinner" {
		t.Errorf("Authoritative() = %+v, want copy of fetched list", got)
	}
	if !l.Fetched() {
		t.Error("Fetched() should be true after a fetch")
	}
}

func TestLedger_StatusPatchedOnlyAffectsDisplayView(t *testing.T) {
	l := New()
	l.Apply(Fetched{Expenses: fixtures()})
	l.Apply(StatusPatched{ID: "e1", Status: models.StatusSettled})

	if got := l.Expenses()[0].Status; got != models.StatusSettled {
		t.Errorf("display status = %s, want settled", got)
	}
	if got := l.Authoritative()[0].Status; got != models.StatusPending {
		t.Errorf("authoritative status = %s, want pending", got)
	}
	if e, ok := l.Get("e1"); !ok || e.Status != models.StatusSettled {
		t.Errorf("Get(e1) = %+v, %v", e, ok)
	}
	if !l.Pending() {
		t.Error("Pending() should report the patch")
	}

	l.Apply(Fetched{Expenses: fixtures()})
	if l.Pending() {
		t.Error("refetch should clear the overlay")
	}
	if got := l.Expenses()[0].Status; got != models.StatusPending {
		t.Errorf("status after refetch = %s, want server value", got)
	}
}

func TestLedger_PatchForUnknownExpenseIsIgnored(t *testing.T) {
	l := New()
	l.Apply(Fetched{Expenses: fixtures()})
	l.Apply(StatusPatched{ID: "missing", Status: models.StatusSettled})

	if l.Pending() {
		t.Error("unknown ID should not create an overlay entry")
	}
}

func TestLedger_Deleted(t *testing.T) {
	l := New()
	l.Apply(Fetched{Expenses: fixtures()})
	l.Apply(StatusPatched{ID: "e2", Status: models.StatusSettled})
	l.Apply(Deleted{ID: "e2"})

	got := l.Expenses()
	if len(got) != 2 || got[0].ID != "e1" || got[1].ID != "e3" {
		t.Fatalf("Expenses() after delete = %+v", got)
	}
	if l.Pending() {
		t.Error("deleting should drop its overlay entry")
	}
	if _, ok := l.Get("e2"); ok {
		t.Error("Get() should not find a deleted expense")
	}

	l.Apply(Deleted{ID: "e2"})
	if len(l.Authoritative()) != 2 {
		t.Error("deleting twice should be a no-op")
	}
}
