package auth

import (
	"sync"
	"time"
)

// Service answers "who is calling" for a bearer token and tracks sign-ins
// and sign-outs.
type Service struct {
	jwt    *JWTService
	broker *Broker
	now    func() time.Time

	mu      sync.Mutex
	seen    map[string]time.Time // token id -> expiry
	revoked map[string]time.Time // token id -> expiry
}

func NewService(jwt *JWTService, broker *Broker) *Service {
	return &Service{
		jwt:     jwt,
		broker:  broker,
		now:     time.Now,
		seen:    make(map[string]time.Time),
		revoked: make(map[string]time.Time),
	}
}

func (s *Service) Broker() *Broker {
	return s.broker
}

// CurrentSession validates the token. Revoked tokens are rejected with
// ErrRevoked. The first request carrying a token announces SIGNED_IN.
func (s *Service) CurrentSession(token string) (*Session, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	id := tokenID(token, claims)

	s.mu.Lock()
	if _, ok := s.revoked[id]; ok {
		s.mu.Unlock()
		return nil, ErrRevoked
	}
	_, known := s.seen[id]
	if !known {
		s.pruneLocked()
		s.seen[id] = claims.ExpiresAt.Time
	}
	s.mu.Unlock()

	session := &Session{
		AccessToken: token,
		User:        User{ID: claims.Subject, Email: claims.Email},
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if !known {
		s.broker.Publish(SessionEvent{Type: SignedIn, User: session.User, At: s.now()})
	}
	return session, nil
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pruneLocked()
	id := tokenID(token, claims)
	_, already := s.revoked[id]
	s.revoked[id] = claims.ExpiresAt.Time
	delete(s.seen, id)
	s.mu.Unlock()

	if !already {
		s.broker.Publish(SessionEvent{
			Type: SignedOut,
			User: User{ID: claims.Subject, Email: claims.Email},
			At:   s.now(),
		})
	}
	return nil
}

func (s *Service) pruneLocked() {
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	for id, exp := range s.seen {
		if now.After(exp) {
			delete(s.seen, id)
		}
	}
}

func tokenID(token string, claims *Claims) string {
	if claims.ID != "" {
		return claims.ID
	}
	return token
}
