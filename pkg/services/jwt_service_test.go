package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(secret, "vidfold-api", time.Hour)
	id := uuid.New()

	token, err := svc.GenerateToken(id, "a@example.com", "alice")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, id.String(), claims.Subject)

	sess := SessionFromClaims(claims, token)
	assert.Equal(t, id.String(), sess.UserID)
	assert.Equal(t, token, sess.Token)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService(secret, "vidfold-api", time.Hour)
	token, err := svc.GenerateToken(uuid.New(), "a@example.com", "alice")
	require.NoError(t, err)

	other := NewTokenService("ffffffffffffffffffffffffffffffff", "vidfold-api", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	wrongIssuer := NewTokenService(secret, "someone-else", time.Hour)
	_, err = wrongIssuer.ValidateToken(token)
	assert.Error(t, err)

	expired := NewTokenService(secret, "vidfold-api", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestContextAuthenticator(t *testing.T) {
	var auth ContextAuthenticator

	assert.Nil(t, auth.CurrentUser(context.Background()))
	assert.Nil(t, auth.CurrentUser(WithSession(context.Background(), &Session{})))

	ctx := WithSession(context.Background(), &Session{UserID: "u1", Token: "t"})
	got := auth.CurrentUser(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
}
