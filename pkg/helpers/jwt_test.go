package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *JWTManager {
	return NewJWTManager("test-secret", "platformkit", "platformkit-users", 24*time.Hour)
}

func TestJWTManager_GenerateAndParse(t *testing.T) {
	m := testManager()
	sub := TokenSubject{
		ID:        "user-1",
		Name:      "ada@example.com",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Roles:     []string{"user", "admin"},
	}

	token, exp, err := m.Generate(sub)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.FirstName)
	assert.Equal(t, "Lovelace", claims.LastName)
	assert.Equal(t, []string{"user", "admin"}, claims.Roles)
	assert.Equal(t, "platformkit", claims.Issuer)
	require.Len(t, claims.Audience, 1)
	assert.Equal(t, "platformkit-users", claims.Audience[0])
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestJWTManager_ParseRejects(t *testing.T) {
	m := testManager()
	token, _, err := m.Generate(TokenSubject{ID: "user-1", Email: "a@b.com"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", m.Issuer, m.Audience, m.TTL)
		_, err := other.Parse(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTManager("test-secret", "someone-else", m.Audience, m.TTL)
		_, err := other.Parse(token)
		assert.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewJWTManager("test-secret", m.Issuer, "other-aud", m.TTL)
		_, err := other.Parse(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		short := NewJWTManager("test-secret", m.Issuer, m.Audience, -time.Minute)
		tok, _, err := short.Generate(TokenSubject{ID: "user-1"})
		require.NoError(t, err)
		_, err = short.Parse(tok)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not.a.token")
		assert.Error(t, err)
	})
}
