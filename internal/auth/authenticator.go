// Package auth issues and verifies bearer tokens and checks user credentials.
package auth

import (
	"context"

	"github.com/mmynk/receiptsplit/internal/models"
)

// Authenticator checks the credential a seeded account logs in with.
type Authenticator interface {
	// Authenticate returns the account for email when credential matches.
	// Unknown emails and wrong credentials both yield ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential rejects credentials too weak to seed an account with.
	ValidateCredential(credential string) error
}
