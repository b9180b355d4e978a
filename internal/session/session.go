// Package session holds the client-side identity of the logged-in user.
//
// The identity is decoded from the bearer token exactly once, when the session
// is created, and then passed explicitly to everything that needs it. The token
// signature is not verified here; the backend does that on every request.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("not logged in")
	ErrMalformed    = errors.New("malformed token")
	ErrMissingSub   = errors.New("token has no subject")
	ErrExpiredToken = errors.New("session expired, please log in again")
)

// Claims are the token claims the client reads.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Session is the current user's identity plus the token that proves it.
type Session struct {
	// UserID is the token subject (the user's email).
	UserID string

	// Name is the display name carried in the token, possibly empty.
	Name string

	// Token is the raw bearer token sent with every request.
	Token string

	// ExpiresAt is zero when the token carries no expiry.
	ExpiresAt time.Time
}

// FromToken decodes token without verifying its signature.
func FromToken(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSub
	}

	s := &Session{
		UserID: claims.Subject,
		Name:   claims.Name,
		Token:  token,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Expired reports whether the token expiry has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// DisplayName returns Name, falling back to the user ID.
func (s *Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.UserID
}

// Is reports whether userID is the session user.
func (s *Session) Is(userID string) bool {
	return s != nil && userID != "" && s.UserID == userID
}
