package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentaldesk-bff/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signed(t *testing.T, claims UserClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-key"))
	require.NoError(t, err)
	return token
}

func TestManager_Resolve(t *testing.T) {
	m := NewManager(config.SessionConfig{})

	t.Run("Valid Token", func(t *testing.T) {
		token := signed(t, UserClaims{
			UserID: "42",
			Email:  "clerk@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		sess, err := m.Resolve("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "42", sess.UserID)
		assert.Equal(t, "clerk@example.com", sess.Email)
		assert.Equal(t, "Bearer "+token, sess.AuthorizationHeader())
		assert.False(t, sess.Bypass)
	})

	t.Run("Subject Fallback", func(t *testing.T) {
		token := signed(t, UserClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}})
		sess, err := m.Resolve("bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "7", sess.UserID)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token := signed(t, UserClaims{
			UserID: "42",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		})
		_, err := m.Resolve("Bearer " + token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Missing Token", func(t *testing.T) {
		_, err := m.Resolve("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, header := range []string{"Basic abc", "Bearer ", "Bearer not-a-jwt"} {
			_, err := m.Resolve(header)
			assert.ErrorIs(t, err, ErrInvalidToken, header)
		}
	})

	t.Run("No User", func(t *testing.T) {
		token := signed(t, UserClaims{Email: "x@example.com"})
		_, err := m.Resolve("Bearer " + token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestManager_Bypass(t *testing.T) {
	m := NewManager(config.SessionConfig{
		Bypass:       true,
		DevSecret:    testSecret,
		DevUserID:    "dev",
		DevUserEmail: "dev@example.com",
	})

	sess, err := m.Resolve("")
	require.NoError(t, err)
	assert.True(t, sess.Bypass)
	assert.Equal(t, "dev", sess.UserID)
	assert.NotEmpty(t, sess.Token)

	parsed, err := jwt.ParseWithClaims(sess.Token, &UserClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "dev", parsed.Claims.(*UserClaims).UserID)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), &Session{UserID: "1"})
	sess, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "1", sess.UserID)
}

func TestSession_CacheScope(t *testing.T) {
	a := &Session{UserID: "alice", Token: "token-a"}
	b := &Session{UserID: "alice", Token: "token-b"}

	assert.Equal(t, a.CacheScope(), (&Session{UserID: "bob", Token: "token-a"}).CacheScope())
	assert.NotEqual(t, a.CacheScope(), b.CacheScope())
	assert.NotContains(t, a.CacheScope(), "token-a")
	assert.Equal(t, "anonymous", (*Session)(nil).CacheScope())
}
