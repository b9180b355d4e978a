package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/internal/validation"
)

// AuthService handles login and identity lookups.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if req == nil {
		return nil, newError(ErrInvalidArgument, "Request body is required")
	}
	req.Email = calculator.NormalizeEmail(req.Email)
	s.logger.Info("Login request", "email", req.Email)

	if err := validation.Struct(req); err != nil {
		return nil, &Error{Kind: ErrInvalidArgument, Detail: err.Error()}
	}

	user, err := s.authenticator.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Email, "error", err)
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "email", user.Email, "error", err)
		return nil, err
	}

	s.logger.Info("User logged in successfully", "email", user.Email)
	return &models.LoginResponse{Token: token, User: *user}, nil
}

// Me returns the stored profile of the caller. Callers whose account disappeared
// after their token was issued still get the identity carried by the token.
func (s *AuthService) Me(ctx context.Context, caller Caller) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, caller.Email)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.User{Email: caller.Email, Name: caller.Name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SeedUser is an account provisioned from configuration. Exactly one of Password
// and PasswordHash is expected; a plain password is hashed before storing.
type SeedUser struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// Seed upserts the configured accounts.
func (s *AuthService) Seed(ctx context.Context, seeds []SeedUser) error {
	for _, seed := range seeds {
		email := calculator.NormalizeEmail(seed.Email)
		if err := validation.Email(email); err != nil {
			return fmt.Errorf("invalid seed user: %w", err)
		}

		hash := seed.PasswordHash
		if hash == "" {
			if err := s.authenticator.ValidateCredential(seed.Password); err != nil {
				return fmt.Errorf("seed user %s: %w", email, err)
			}
			var err error
			if hash, err = auth.HashPassword(seed.Password); err != nil {
				return fmt.Errorf("seed user %s: %w", email, err)
			}
		}

		name := strings.TrimSpace(seed.Name)
		if name == "" {
			name = email
		}
		user := &models.User{
			Email:        email,
			Name:         name,
			Phone:        seed.Phone,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.users.UpsertUser(ctx, user); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", email, err)
		}
	}
	if len(seeds) > 0 {
		s.logger.Info("Seeded users", "count", len(seeds))
	}
	return nil
}
