package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService(testSecret, 1)

	token, err := svc.GenerateToken("8f14e45f-ceea-467f-a8f8-3c4f6b7e2a10", "ana@irrelevant.dev")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "8f14e45f-ceea-467f-a8f8-3c4f6b7e2a10", claims.Subject)
	assert.Equal(t, "ana@irrelevant.dev", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewJWTService(testSecret, 1)
	other := NewJWTService("another-secret-another-secret-another", 1)

	foreign, err := other.GenerateToken("u1", "")
	require.NoError(t, err)

	expiredSvc := NewJWTService(testSecret, 1)
	expiredSvc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredSvc.GenerateToken("u1", "")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"no subject", noSubject},
		{"no expiry", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestValidateTokenRejectsForeignAudience(t *testing.T) {
	svc := NewJWTService(testSecret, 1)
	now := time.Now()

	sign := func(aud ...string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				Audience:  aud,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}

	_, err := svc.ValidateToken(sign("some-other-service"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.ValidateToken(sign())
	assert.ErrorIs(t, err, ErrUnauthorized)

	claims, err := svc.ValidateToken(sign("some-other-service", authenticatedAudience))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

func TestServiceSignInAndOut(t *testing.T) {
	jwtSvc := NewJWTService(testSecret, 1)
	broker := NewBroker()
	svc := NewService(jwtSvc, broker)

	events, cancel := broker.Subscribe()
	defer cancel()

	token, err := jwtSvc.GenerateToken("u1", "ana@irrelevant.dev")
	require.NoError(t, err)

	session, err := svc.CurrentSession(token)
	require.NoError(t, err)
	assert.Equal(t, "ana@irrelevant.dev", session.Actor().Email)
	assert.Equal(t, "u1", session.Actor().UserID)
	assert.False(t, session.ExpiresAt.IsZero())

	e := <-events
	assert.Equal(t, SignedIn, e.Type)
	assert.Equal(t, "u1", e.User.ID)

	// later requests with the same token are not new sign-ins
	_, err = svc.CurrentSession(token)
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, svc.SignOut(token))
	e = <-events
	assert.Equal(t, SignedOut, e.Type)
	assert.Equal(t, "u1", e.User.ID)

	_, err = svc.CurrentSession(token)
	assert.ErrorIs(t, err, ErrRevoked)

	// a second sign-out is a no-op
	require.NoError(t, svc.SignOut(token))
	select {
	case e := <-events:
		t.Fatalf("unexpected event %v", e.Type)
	default:
	}
}

func TestCurrentSessionAnnouncesEachToken(t *testing.T) {
	jwtSvc := NewJWTService(testSecret, 1)
	broker := NewBroker()
	svc := NewService(jwtSvc, broker)

	events, cancel := broker.Subscribe()
	defer cancel()

	svc.seen["stale"] = time.Now().Add(-time.Minute)
	first, err := jwtSvc.GenerateToken("u1", "ana@irrelevant.dev")
	require.NoError(t, err)
	second, err := jwtSvc.GenerateToken("u2", "bo@irrelevant.dev")
	require.NoError(t, err)

	for _, token := range []string{first, first, second, first, second} {
		_, err := svc.CurrentSession(token)
		require.NoError(t, err)
	}

	require.Len(t, events, 2)
	assert.Equal(t, "u1", (<-events).User.ID)
	assert.Equal(t, "u2", (<-events).User.ID)
	assert.NotContains(t, svc.seen, "stale")
	assert.Len(t, svc.seen, 2)
}

func TestSignOutPrunesExpiredRevocations(t *testing.T) {
	jwtSvc := NewJWTService(testSecret, 1)
	svc := NewService(jwtSvc, NewBroker())

	svc.revoked["stale"] = time.Now().Add(-time.Minute)
	token, err := jwtSvc.GenerateToken("u1", "")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(token))

	assert.NotContains(t, svc.revoked, "stale")
	assert.Len(t, svc.revoked, 1)
}

func TestBrokerUnsubscribe(t *testing.T) {
	broker := NewBroker()
	events, cancel := broker.Subscribe()

	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)
	broker.Publish(SessionEvent{Type: SignedIn})
}

func TestBrokerDropsForSlowSubscribers(t *testing.T) {
	broker := NewBroker()
	events, cancel := broker.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		broker.Publish(SessionEvent{Type: SignedIn})
	}

	assert.Len(t, events, subscriberBuffer)
}
