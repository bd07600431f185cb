package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", false, "secret", time.Hour)
	require.NoError(t, err)

	meta, err := CheckAndExtractTokenMetadata(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", meta.Id)
	assert.False(t, meta.Otp)
	assert.Greater(t, meta.Exp, time.Now().Unix())
}

func TestTokenRejected(t *testing.T) {
	expired, err := GenerateToken("user-1", false, "secret", -time.Minute)
	require.NoError(t, err)
	valid, err := GenerateToken("user-1", false, "secret", time.Hour)
	require.NoError(t, err)
	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"otp": false}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tc := range map[string]struct{ token, key string }{
		"expired":    {expired, "secret"},
		"wrong key":  {valid, "other"},
		"wrong alg":  {hs256, "secret"},
		"missing id": {noID, "secret"},
		"garbage":    {"not-a-token", "secret"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := CheckAndExtractTokenMetadata(tc.token, tc.key)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
