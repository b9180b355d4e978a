package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/session"
)

func testExpenses() []models.Expense {
	return []models.Expense{
		{ID: "a1b2c3d4-0000", Description: "Dinner"},
		{ID: "a1b2ffff-0000", Description: "Taxi"},
		{ID: "9999aaaa-0000", Description: "Groceries"},
	}
}

func TestResolveExpenseID(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr string
	}{
		{ref: "a1b2c3d4-0000", want: "a1b2c3d4-0000"},
		{ref: "a1b2c", want: "a1b2c3d4-0000"},
		{ref: "9999", want: "9999aaaa-0000"},
		{ref: "a1b2", wantErr: "matches 2 expenses"},
		{ref: "zzzz", wantErr: "no expense matches"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolveExpenseID(testExpenses(), tt.ref)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("resolveExpenseID(%q) = %q, %v", tt.ref, got, err)
			}
		})
	}
}

func TestPickParticipants(t *testing.T) {
	friends := []models.Friend{
		{ID: "f1", Name: "Bob Lin", Email: "bob@example.com", Initials: "BL"},
		{ID: "f2", Name: "Carol Jones", Email: "carol@example.com", Initials: "CJ"},
	}

	got, err := pickParticipants(friends, "CAROL@example.com, f1, f2")
	if err != nil {
		t.Fatalf("pickParticipants() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "f2" || got[1].ID != "f1" || got[0].Contact != "carol@example.com" {
		t.Errorf("selected = %+v", got)
	}

	if _, err := pickParticipants(friends, "dave@example.com"); err == nil {
		t.Error("expected error for unknown friend")
	}
	if got, _ := pickParticipants(friends, ""); len(got) != 0 {
		t.Errorf("empty list selected %+v", got)
	}
}

// fakeBackend serves login and a single expense created by alice for bob.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	alice := &models.User{Email: "alice@example.com", Name: "Alice Chen"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "alice-password" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		token, _ := jwtManager.Generate(alice)
		json.NewEncoder(w).Encode(models.LoginResponse{Token: token, User: *alice})
	})
	mux.HandleFunc("GET /api/expenses/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Not authenticated"}`))
			return
		}
		json.NewEncoder(w).Encode([]models.Expense{{
			ID:          "e1e1e1e1-aaaa",
			CreatorID:   "alice@example.com",
			CreatorName: "Alice Chen",
			Description: "Dinner",
			TotalAmount: decimal.RequireFromString("47.10"),
			Participants: []models.Participant{
				{Email: "bob@example.com", Name: "Bob Lin", Amount: decimal.RequireFromString("23.55")},
			},
			Status: models.StatusPending,
		}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, apiURL, stdin string) (*app, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &app{
		cfg: &config.Client{
			APIURL:    apiURL,
			TokenFile: filepath.Join(t.TempDir(), "token"),
			Timeout:   5 * time.Second,
		},
		tokens: session.NewFileTokenStore(filepath.Join(t.TempDir(), "token")),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdin:  strings.NewReader(stdin),
		stdout: &out,
	}, &out
}

func TestCommands(t *testing.T) {
	srv := fakeBackend(t)
	ctx := context.Background()
	a, out := newTestApp(t, srv.URL, "alice-password\n")

	if err := cmdMetrics(ctx, a, nil); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("metrics before login error = %v", err)
	}

	if err := cmdLogin(ctx, a, []string{"-email", "alice@example.com"}); err != nil {
		t.Fatalf("login error: %v", err)
	}
	if !strings.Contains(out.String(), "Logged in as Alice Chen (alice@example.com)") {
		t.Errorf("login output = %q", out.String())
	}

	out.Reset()
	if err := cmdMetrics(ctx, a, nil); err != nil {
		t.Fatalf("metrics error: %v", err)
	}
	if !strings.Contains(out.String(), "Owed to you:   $23.55") || !strings.Contains(out.String(), "Open expenses: 1") {
		t.Errorf("metrics output = %q", out.String())
	}

	out.Reset()
	if err := cmdList(ctx, a, nil); err != nil {
		t.Fatalf("list error: %v", err)
	}
	for _, want := range []string{"e1e1e1e1", "Dinner", "$47.10", "$23.55", "You", "send_reminder,mark_settled"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q:\n%s", want, out.String())
		}
	}

	if err := cmdPay(ctx, a, []string{"e1e1"}); err == nil {
		t.Error("creator pay should fail locally")
	}

	if err := cmdLogout(ctx, a, nil); err != nil {
		t.Fatalf("logout error: %v", err)
	}
	if _, err := a.tokens.LoadToken(); err != session.ErrNoToken {
		t.Errorf("token after logout = %v", err)
	}

	bad, _ := newTestApp(t, srv.URL, "")
	if err := cmdLogin(ctx, bad, []string{"-email", "alice@example.com", "-password", "nope"}); err == nil || !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("bad login error = %v", err)
	}
}
