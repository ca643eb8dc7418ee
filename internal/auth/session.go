// Package auth validates the bearer sessions issued by the identity
// provider and broadcasts sign-in and sign-out events.
package auth

import (
	"errors"
	"time"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRevoked      = errors.New("session revoked")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

type Session struct {
	AccessToken string    `json:"-"`
	User        User      `json:"user"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Actor is the identity recorded on audit entries.
func (s *Session) Actor() entity.Actor {
	return entity.Actor{UserID: s.User.ID, Email: s.User.Email}
}

type EventType string

const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

type SessionEvent struct {
	Type EventType `json:"type"`
	User User      `json:"user"`
	At   time.Time `json:"at"`
}
