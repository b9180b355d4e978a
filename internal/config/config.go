// Package config reads server and client settings from the environment,
// after loading an optional .env file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/receiptsplit/internal/client"
	"github.com/mmynk/receiptsplit/internal/receipt"
	"github.com/mmynk/receiptsplit/internal/service"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Server holds the backend configuration.
type Server struct {
	Port string

	// DBDriver is "sqlite" or "postgres".
	DBDriver    string
	DatabaseURL string

	JWTSecret     string
	JWTExpiration time.Duration

	// Users are the accounts seeded at startup.
	Users []service.SeedUser
	// Friends is the address book offered to every user. Empty means the seeded users.
	Friends []service.FriendEntry

	ReceiptsDir     string
	ReceiptsBaseURL string

	// OCRURL empty disables receipt text extraction.
	OCRURL     string
	OCRAPIKey  string
	OCRModel   string
	OCRTimeout time.Duration

	// FrontendURL is the comma-separated list of allowed CORS origins.
	FrontendURL string
}

// Client holds the command-line client configuration.
type Client struct {
	APIURL    string
	TokenFile string
	Timeout   time.Duration
}

// LoadDotEnv loads .env from the working directory. A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// LoadServer reads the server configuration.
func LoadServer() (*Server, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Server{
		Port:            getEnv("PORT", "8000"),
		DBDriver:        strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseURL:     getEnv("DATABASE_URL", "./data/receiptsplit.db"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ReceiptsDir:     getEnv("RECEIPTS_DIR", "./data/files"),
		ReceiptsBaseURL: os.Getenv("RECEIPTS_BASE_URL"),
		OCRURL:          os.Getenv("OCR_URL"),
		OCRAPIKey:       os.Getenv("OCR_API_KEY"),
		OCRModel:        getEnv("OCR_MODEL", receipt.DefaultOCRModel),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	hours, err := getInt("JWT_EXPIRATION_HOURS", 168)
	if err != nil {
		return nil, err
	}
	if hours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", hours)
	}
	cfg.JWTExpiration = time.Duration(hours) * time.Hour

	if cfg.OCRTimeout, err = getDuration("OCR_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver)
	}

	if err := getJSON("USERS", &cfg.Users); err != nil {
		return nil, err
	}
	if err := getJSON("FRIENDS", &cfg.Friends); err != nil {
		return nil, err
	}
	if len(cfg.Friends) == 0 {
		for _, u := range cfg.Users {
			cfg.Friends = append(cfg.Friends, service.FriendEntry{Name: u.Name, Email: u.Email, Phone: u.Phone})
		}
	}

	return cfg, nil
}

// Addr is the listen address.
func (c *Server) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// LoadClient reads the command-line client configuration.
func LoadClient() (*Client, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Client{
		APIURL:    strings.TrimSuffix(getEnv("RECEIPTSPLIT_API_URL", "http://localhost:8000"), "/"),
		TokenFile: os.Getenv("RECEIPTSPLIT_TOKEN_FILE"),
	}
	if cfg.TokenFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config directory: %w", err)
		}
		cfg.TokenFile = filepath.Join(dir, "receiptsplit", "token")
	}

	var err error
	if cfg.Timeout, err = getDuration("RECEIPTSPLIT_TIMEOUT", client.DefaultTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getJSON(key string, v any) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}
