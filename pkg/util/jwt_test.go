package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateToken("u1", "u1@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1@example.com", claims.Email)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateToken("u1", "u1@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	SetJWTSecret("other-secret")
	token, err := GenerateToken("u1", "", time.Hour)
	require.NoError(t, err)

	SetJWTSecret("test-secret")
	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestParseTokenRejectsNoneAlg(t *testing.T) {
	SetJWTSecret("test-secret")
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(raw)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestParseTokenFallsBackToSubject(t *testing.T) {
	SetJWTSecret("test-secret")
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u9",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	got, err := ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "u9", got.UserID)
}

func TestNextIDUnique(t *testing.T) {
	require.NoError(t, InitSnowflake(1))
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NextID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
