package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateRoundTrip(t *testing.T) {
	a := NewAuthenticator("secret")
	token, err := a.GenerateAccessToken("alice", time.Hour)
	require.NoError(t, err)

	claims, err := a.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)

	claims, err = a.Authenticate("bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}

func TestAuthenticateRejects(t *testing.T) {
	a := NewAuthenticator("secret")
	good, err := a.GenerateAccessToken("alice", time.Hour)
	require.NoError(t, err)

	expired, err := a.GenerateAccessToken("alice", -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewAuthenticator("other").GenerateAccessToken("alice", time.Hour)
	require.NoError(t, err)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	noSubjectToken, err := noSubject.SignedString([]byte("secret"))
	require.NoError(t, err)

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	wrongIssuerToken, err := wrongIssuer.SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"empty header", "", ErrMissingToken},
		{"no scheme", good, ErrMissingToken},
		{"basic scheme", "Basic abc", ErrMissingToken},
		{"expired", "Bearer " + expired, ErrInvalidToken},
		{"wrong key", "Bearer " + otherKey, ErrInvalidToken},
		{"garbage", "Bearer not-a-jwt", ErrInvalidToken},
		{"no subject", "Bearer " + noSubjectToken, ErrInvalidToken},
		{"wrong issuer", "Bearer " + wrongIssuerToken, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserIDContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUserID(context.Background(), "bob")
	userID, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "bob", userID)
}
