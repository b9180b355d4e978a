package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	return signTokenWith(t, "some-secret", claims)
}

func signTokenWith(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestFromToken(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token := signToken(t, Claims{
		Name: "Alice Chen",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice@example.com",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	s, err := FromToken(token)
	if err != nil {
		t.Fatalf("FromToken() unexpected error: %v", err)
	}
	if s.UserID != "alice@example.com" {
		t.Errorf("UserID = %q", s.UserID)
	}
	if s.Name != "Alice Chen" {
		t.Errorf("Name = %q", s.Name)
	}
	if !s.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, exp)
	}
	if s.Expired(exp.Add(-time.Minute)) {
		t.Error("session should not be expired before exp")
	}
	if !s.Expired(exp) {
		t.Error("session should be expired at exp")
	}
}

func TestFromToken_UnverifiedSignatureIsAccepted(t *testing.T) {
	token := signTokenWith(t, "a-key-the-client-never-sees", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "bob@example.com"}})

	s, err := FromToken(token)
	if err != nil {
		t.Fatalf("FromToken() unexpected error: %v", err)
	}
	if s.UserID != "bob@example.com" {
		t.Errorf("UserID = %q", s.UserID)
	}
	if s.DisplayName() != "bob@example.com" {
		t.Errorf("DisplayName() = %q, want user ID fallback", s.DisplayName())
	}
	if !s.ExpiresAt.IsZero() || s.Expired(time.Now()) {
		t.Error("token without exp should never expire")
	}
}

func TestFromToken_Errors(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "  ", ErrNoToken},
		{"not a jwt", "abc", ErrMalformed},
		{"no subject", signToken(t, Claims{Name: "x"}), ErrMissingSub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromToken(tt.token); !errors.Is(err, tt.wantErr) {
				t.Errorf("FromToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionIs(t *testing.T) {
	s := &Session{UserID: "alice@example.com"}
	if !s.Is("alice@example.com") || s.Is("bob@example.com") || s.Is("") {
		t.Error("Is() mismatch")
	}
	var nilSession *Session
	if nilSession.Is("alice@example.com") {
		t.Error("nil session should match nobody")
	}
}

func TestFileTokenStore(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "token"))

	if _, err := store.Load(time.Now()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() on empty store error = %v, want ErrNoToken", err)
	}

	token := signToken(t, Claims{
		Name: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if err := store.Save(token); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	s, err := store.Load(time.Now())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.Token != token || s.UserID != "alice@example.com" {
		t.Errorf("loaded session = %+v", s)
	}

	if _, err := store.Load(time.Now().Add(2 * time.Hour)); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Load() after expiry error = %v, want ErrExpiredToken", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear() error: %v", err)
	}
	if _, err := store.LoadToken(); !errors.Is(err, ErrNoToken) {
		t.Errorf("LoadToken() after Clear error = %v, want ErrNoToken", err)
	}
}
