package service

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/validation"
)

// FriendEntry is a configured member of the shared friends network.
type FriendEntry struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// FriendService serves the read-only friends network every user selects
// participants from.
type FriendService struct {
	friends []models.Friend
}

// NewFriendService builds the network from configuration. Entries need a name and
// a valid email; emails must be unique.
func NewFriendService(entries []FriendEntry) (*FriendService, error) {
	loaded := time.Now().UTC()
	seen := make(map[string]bool, len(entries))
	friends := make([]models.Friend, 0, len(entries))
	for _, e := range entries {
		email := calculator.NormalizeEmail(e.Email)
		if err := validation.Email(email); err != nil {
			return nil, fmt.Errorf("invalid friend %q: %w", e.Name, err)
		}
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("friend %s has no name", email)
		}
		if seen[email] {
			return nil, fmt.Errorf("duplicate friend %s", email)
		}
		seen[email] = true

		friends = append(friends, models.Friend{
			ID:        FriendID(strings.TrimSpace(e.Email)),
			Name:      strings.TrimSpace(e.Name),
			Email:     email,
			Phone:     e.Phone,
			Initials:  models.Initials(e.Name),
			CreatedAt: loaded,
		})
	}
	return &FriendService{friends: friends}, nil
}

// FriendID is the stable short key of a friend: the first 8 hex digits of the
// MD5 of the email as configured.
func FriendID(email string) string {
	sum := md5.Sum([]byte(email))
	return hex.EncodeToString(sum[:])[:8]
}

// List returns the network without the caller.
func (s *FriendService) List(caller Caller) []models.Friend {
	me := calculator.NormalizeEmail(caller.Email)
	out := make([]models.Friend, 0, len(s.friends))
	for _, f := range s.friends {
		if f.Email == me {
			continue
		}
		out = append(out, f)
	}
	return out
}
