package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdirTemp runs the test from an empty directory so no stray .env is loaded.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadServer_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("USERS", `[{"email":"alice@example.com","name":"Alice","password":"pw"}]`)

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error: %v", err)
	}
	if cfg.Addr() != ":8000" || cfg.DBDriver != "sqlite" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.JWTExpiration != 168*time.Hour {
		t.Errorf("JWTExpiration = %v", cfg.JWTExpiration)
	}
	if cfg.OCRTimeout != time.Minute || cfg.OCRURL != "" {
		t.Errorf("OCR settings = %q %v", cfg.OCRURL, cfg.OCRTimeout)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].Password != "pw" {
		t.Errorf("Users = %+v", cfg.Users)
	}
	if len(cfg.Friends) != 1 || cfg.Friends[0].Email != "alice@example.com" {
		t.Errorf("Friends should default to users, got %+v", cfg.Friends)
	}
}

func TestLoadServer_DotEnv(t *testing.T) {
	chdirTemp(t)
	env := "JWT_SECRET=from-file\nPORT=9090\nOCR_TIMEOUT=90\n"
	if err := os.WriteFile(".env", []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set.
	t.Setenv("PORT", "7070")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("OCR_TIMEOUT")
	})

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error: %v", err)
	}
	if cfg.JWTSecret != "from-file" || cfg.Port != "7070" || cfg.OCRTimeout != 90*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadServer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing secret", env: map[string]string{}, wantErr: "JWT_SECRET"},
		{name: "bad driver", env: map[string]string{"DB_DRIVER": "mysql"}, wantErr: "DB_DRIVER"},
		{name: "bad expiration", env: map[string]string{"JWT_EXPIRATION_HOURS": "soon"}, wantErr: "JWT_EXPIRATION_HOURS"},
		{name: "zero expiration", env: map[string]string{"JWT_EXPIRATION_HOURS": "0"}, wantErr: "must be positive"},
		{name: "bad users", env: map[string]string{"USERS": "{"}, wantErr: "invalid USERS"},
		{name: "bad timeout", env: map[string]string{"OCR_TIMEOUT": "later"}, wantErr: "invalid OCR_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("JWT_SECRET", "secret")
			if tt.name == "missing secret" {
				t.Setenv("JWT_SECRET", "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadServer()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadServer() error = %v, want it to contain %q", err, tt.wantErr)
			}
			if tt.name == "missing secret" && !errors.Is(err, ErrMissingJWTSecret) {
				t.Errorf("error = %v, want ErrMissingJWTSecret", err)
			}
		})
	}
}

func TestLoadClient(t *testing.T) {
	chdirTemp(t)
	tokenFile := filepath.Join(t.TempDir(), "token")
	t.Setenv("RECEIPTSPLIT_API_URL", "https://split.example.com/")
	t.Setenv("RECEIPTSPLIT_TOKEN_FILE", tokenFile)
	t.Setenv("RECEIPTSPLIT_TIMEOUT", "5s")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient() error: %v", err)
	}
	if cfg.APIURL != "https://split.example.com" || cfg.TokenFile != tokenFile || cfg.Timeout != 5*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}
