package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/internal/storage"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &models.User{Email: "alice@example.com", Name: "Alice Chen"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if claims.Subject != "alice@example.com" || claims.Name != "Alice Chen" {
		t.Errorf("claims = %+v", claims)
	}

	// The client decodes the same token without the secret.
	sess, err := session.FromToken(token)
	if err != nil {
		t.Fatalf("session.FromToken() error: %v", err)
	}
	if sess.UserID != user.Email || sess.Name != user.Name || sess.ExpiresAt.IsZero() {
		t.Errorf("session = %+v", sess)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, err := m.Generate(&models.User{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTManager("test-secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := later.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "eve@example.com"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("failed to build token: %v", err)
		}
		if _, err := m.Validate(unsigned); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})
}

type memoryUsers map[string]*models.User

func (m memoryUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func TestPasswordAuthenticator(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	a := NewPasswordAuthenticator(memoryUsers{
		"alice@example.com": {Email: "alice@example.com", Name: "Alice", PasswordHash: hash},
	})
	ctx := context.Background()

	user, err := a.Authenticate(ctx, " Alice@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if user.Name != "Alice" {
		t.Errorf("user = %+v", user)
	}

	if _, err := a.Authenticate(ctx, "alice@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := a.Authenticate(ctx, "bob@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v", err)
	}

	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("HashPassword(short) error = %v", err)
	}
	if err := a.ValidateCredential("12345678"); err != nil {
		t.Errorf("ValidateCredential() error = %v", err)
	}
}
