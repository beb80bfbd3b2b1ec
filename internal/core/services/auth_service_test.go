package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// personalSign signs message the way wallets do, with v in {27, 28}
func personalSign(t *testing.T, message string) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func TestLoginWithSignedChallenge(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService("secret", 15, 5*time.Minute)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	ch := svc.Challenge(ctx, addr)
	assert.Equal(t, strings.ToLower(addr.Hex()), ch.Address)
	assert.Contains(t, ch.Message, ch.Nonce)

	sig, err := crypto.Sign(accounts.TextHash([]byte(ch.Message)), key)
	require.NoError(t, err)

	resp, err := svc.Login(ctx, addr, hexutil.Encode(sig))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	caller, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, addr, caller)

	// the challenge is single use
	_, err = svc.Login(ctx, addr, hexutil.Encode(sig))
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestLoginRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService("secret", 15, 5*time.Minute)

	ch := svc.Challenge(ctx, farmer)
	sig := personalSign(t, ch.Message)

	_, err := svc.Login(ctx, farmer, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.Login(ctx, farmer, "0x1234")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestLoginExpiredChallenge(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService("secret", 15, time.Minute)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	ch := svc.Challenge(ctx, addr)
	sig, err := crypto.Sign(accounts.TextHash([]byte(ch.Message)), key)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.Login(ctx, addr, hexutil.Encode(sig))
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestRecoverSignerAcceptsBothRecoveryEncodings(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := crypto.Sign(accounts.TextHash([]byte("hello")), key)
	require.NoError(t, err)

	got, err := RecoverSigner("hello", hexutil.Encode(sig))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	sig[crypto.RecoveryIDOffset] += 27
	got, err = RecoverSigner("hello", hexutil.Encode(sig))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = RecoverSigner("hell0", hexutil.Encode(sig))
	require.NoError(t, err)
	assert.NotEqual(t, want, got)
}
