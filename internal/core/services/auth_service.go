package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/pkg/jwt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// Auth errors
var (
	ErrChallengeNotFound = errors.New("no pending sign-in challenge")
	ErrChallengeExpired  = errors.New("sign-in challenge expired")
	ErrInvalidSignature  = errors.New("invalid signature")
)

// AuthService signs wallets in with an EIP-191 personal message challenge
type AuthService struct {
	secret       string
	tokenMinutes int
	challengeTTL time.Duration
	now          func() time.Time

	mu      sync.Mutex
	pending map[common.Address]Challenge
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, tokenMinutes int, challengeTTL time.Duration) *AuthService {
	return &AuthService{
		secret:       secret,
		tokenMinutes: tokenMinutes,
		challengeTTL: challengeTTL,
		now:          time.Now,
		pending:      make(map[common.Address]Challenge),
	}
}

// ChallengeInput represents challenge request input
type ChallengeInput struct {
	Address string `json:"address" validate:"required"`
}

// LoginInput represents login input
type LoginInput struct {
	Address   string `json:"address" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// Challenge is the one-time message a wallet must sign
type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Address     string    `json:"address"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Challenge issues a fresh challenge for address, replacing any pending one
func (s *AuthService) Challenge(ctx context.Context, address common.Address) Challenge {
	now := s.now()
	nonce := uuid.NewString()
	expiresAt := now.Add(s.challengeTTL)
	ch := Challenge{
		Address:   domain.CanonicalAddress(address),
		Nonce:     nonce,
		Message:   challengeMessage(address, nonce, expiresAt),
		ExpiresAt: expiresAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(now)
	s.pending[address] = ch
	return ch
}

// Login verifies the signature over the pending challenge of address,
// consumes the challenge and returns an access token
func (s *AuthService) Login(ctx context.Context, address common.Address, signature string) (*AuthResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.pending[address]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	if !s.now().Before(ch.ExpiresAt) {
		delete(s.pending, address)
		return nil, ErrChallengeExpired
	}

	signer, err := RecoverSigner(ch.Message, signature)
	if err != nil {
		return nil, err
	}
	if signer != address {
		return nil, ErrInvalidSignature
	}
	delete(s.pending, address)

	token, expiresAt, err := jwt.GenerateAccessToken(ch.Address, s.secret, s.tokenMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &AuthResponse{
		Address:     ch.Address,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken returns the caller address carried by token
func (s *AuthService) ValidateToken(token string) (common.Address, error) {
	claims, err := jwt.ValidateAccessToken(token, s.secret)
	if err != nil {
		return common.Address{}, err
	}
	return domain.ParseAddress(claims.Address)
}

// RecoverSigner returns the address that produced an EIP-191 personal_sign
// signature over message. Both v=0/1 and v=27/28 encodings are accepted.
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// prune drops expired challenges; caller holds s.mu
func (s *AuthService) prune(now time.Time) {
	for addr, ch := range s.pending {
		if !now.Before(ch.ExpiresAt) {
			delete(s.pending, addr)
		}
	}
}

func challengeMessage(address common.Address, nonce string, expiresAt time.Time) string {
	return fmt.Sprintf("KCC LoanHub sign-in\nAddress: %s\nNonce: %s\nExpires: %s",
		domain.CanonicalAddress(address), nonce, expiresAt.UTC().Format(time.RFC3339))
}
