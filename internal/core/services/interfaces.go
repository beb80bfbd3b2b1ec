package services

import (
	"context"
	"math/big"

	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/zkp"
)

// ProofVerifier checks an eligibility proof against an ordered public-input
// vector. Implemented by *zkp.Verifier.
type ProofVerifier interface {
	Verify(proof zkp.ProofArtifact, publicInputs []*big.Int) bool
}

// LedgerReader is the read-only view used by reporting services
type LedgerReader interface {
	AllLoans(ctx context.Context) ([]*domain.LoanApplication, error)
	CredentialStats(ctx context.Context) (total, active int64, err error)
}
