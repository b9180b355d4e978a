package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

// UpsertUser inserts a user or updates the existing account with the same email.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (email, name, phone, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			password_hash = excluded.password_hash
	`

	_, err := s.db.ExecContext(ctx, s.q(query),
		user.Email,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT email, name, phone, password_hash, created_at
		FROM users
		WHERE email = ?
	`

	user := &models.User{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, s.q(query), email).Scan(
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.PasswordHash,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	user.CreatedAt = time.UnixMicro(createdAt).UTC()
	return user, nil
}
