package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(testSecret, time.Hour, map[string]string{" Boss@Ohsung.kr ": string(hash)})
}

func TestAuthenticate(t *testing.T) {
	auth := newTestAuth(t)

	email, err := auth.Authenticate("BOSS@ohsung.kr", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "boss@ohsung.kr", email)

	_, err = auth.Authenticate("boss@ohsung.kr", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Authenticate("nobody@ohsung.kr", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	token, err := auth.GenerateToken("boss@ohsung.kr")
	require.NoError(t, err)

	operator, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "boss@ohsung.kr", operator)
}

func TestValidateTokenRejects(t *testing.T) {
	auth := newTestAuth(t)

	t.Run("unknown operator", func(t *testing.T) {
		token, err := auth.GenerateToken("intruder@ohsung.kr")
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewAuthService("another-secret-another-secret-xx", time.Hour, nil)
		token, err := other.GenerateToken("boss@ohsung.kr")
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "boss@ohsung.kr", "exp": time.Now().Add(-time.Minute).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ValidateToken("not.a.token")
		assert.Error(t, err)
	})
}

func TestHashPassword(t *testing.T) {
	auth := newTestAuth(t)
	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, auth.CompareHashAndPassword(hash, "pw"))
	assert.Error(t, auth.CompareHashAndPassword(hash, "other"))
}
