package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
)

func TestStruct_CreateExpenseRequest(t *testing.T) {
	valid := models.CreateExpenseRequest{
		Description: "Dinner",
		TotalAmount: decimal.RequireFromString("50.00"),
		Participants: []models.Participant{
			{Email: "bob@example.com", Name: "Bob Lin", Amount: decimal.RequireFromString("25.00")},
		},
	}

	tests := []struct {
		name    string
		mutate  func(r *models.CreateExpenseRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(r *models.CreateExpenseRequest) {}},
		{
			name:    "missing description",
			mutate:  func(r *models.CreateExpenseRequest) { r.Description = "" },
			wantErr: "description is required",
		},
		{
			name:    "zero total",
			mutate:  func(r *models.CreateExpenseRequest) { r.TotalAmount = decimal.Zero },
			wantErr: "total_amount must be greater than 0",
		},
		{
			name:    "no participants",
			mutate:  func(r *models.CreateExpenseRequest) { r.Participants = nil },
			wantErr: "participants must contain at least 1 entries",
		},
		{
			name: "bad participant email",
			mutate: func(r *models.CreateExpenseRequest) {
				r.Participants = []models.Participant{{Email: "bob", Name: "Bob", Amount: decimal.NewFromInt(1)}}
			},
			wantErr: "email must be a valid email address",
		},
		{
			name: "negative participant amount",
			mutate: func(r *models.CreateExpenseRequest) {
				r.Participants = []models.Participant{{Email: "bob@example.com", Name: "Bob", Amount: decimal.NewFromInt(-1)}}
			},
			wantErr: "amount must be at least 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.Participants = append([]models.Participant(nil), valid.Participants...)
			tt.mutate(&req)

			err := Struct(req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Struct() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Struct() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	if err := Email("alice@example.com"); err != nil {
		t.Errorf("Email(valid) = %v", err)
	}
	for _, bad := range []string{"", "alice", "(917) 322-9555"} {
		if err := Email(bad); err == nil {
			t.Errorf("Email(%q) expected error", bad)
		}
	}
}
