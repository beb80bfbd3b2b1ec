package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addr = "0x5b38da6a701c568545dcfcb03fcb875f56beddc4"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, expiresAt, err := GenerateAccessToken(addr, "secret", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := ValidateAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, addr, claims.Address)
	assert.Equal(t, addr, claims.Subject)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, _, err := GenerateAccessToken(addr, "secret", 15)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "other")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAccessTokenExpired(t *testing.T) {
	token, _, err := GenerateAccessToken(addr, "secret", -1)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessTokenGarbage(t *testing.T) {
	_, err := ValidateAccessToken("not.a.token", "secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
