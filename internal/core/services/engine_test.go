package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"kcc-loanhub/internal/adapters/persistence/repositories"
	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/zkp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	issuer  = common.HexToAddress("0x5B38Da6a701c568545dCfcB03FcB875f56beddC4")
	officer = common.HexToAddress("0xAb8483F64d9C6d1EcF9b849Ae677dD3315835cb2")
	auditor = common.HexToAddress("0x4B20993Bc481177ec7E8f571ceCaE8A9e22C02db")
	farmer  = common.HexToAddress("0x78731D3Ca6b7E34aC0F824c42a7cC18A495cabaB")
	other   = common.HexToAddress("0x617F2E2fD72FD9D5503197092aC168c91465E7f2")

	testPolicy = EligibilityPolicy{
		MinLand:           3,
		MaxIncome:         300000,
		AllowedCategories: []string{"Agriculture", "Crop Production", "Livestock"},
		MaxCategoryLength: 64,
	}
	testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	keysOnce sync.Once
	keys     *zkp.KeyPair
	keysErr  error
)

func testKeys(t *testing.T) *zkp.KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		keys, keysErr = zkp.GenerateKeys()
	})
	require.NoError(t, keysErr)
	return keys
}

// stubVerifier accepts or rejects every proof
type stubVerifier struct {
	ok bool
}

func (v stubVerifier) Verify(zkp.ProofArtifact, []*big.Int) bool {
	return v.ok
}

func newTestEngine(t *testing.T, verifier ProofVerifier) *Engine {
	t.Helper()
	store := repositories.NewMemoryStore()
	_, err := NewRoleAuthority(store).Bootstrap(context.Background(), domain.RoleAssignment{
		Issuer:      issuer,
		BankOfficer: officer,
		Auditor:     auditor,
	})
	require.NoError(t, err)
	return NewEngine(store, verifier, testPolicy, WithClock(func() time.Time { return testNow }))
}

func issue(t *testing.T, eng *Engine, subject common.Address) {
	t.Helper()
	_, err := eng.IssueCredential(context.Background(), issuer, subject)
	require.NoError(t, err)
}

// applyWithStub submits the expected inputs with an empty proof; only useful with stubVerifier
func applyWithStub(t *testing.T, eng *Engine, who common.Address, amount uint64) (uint64, error) {
	t.Helper()
	st, err := eng.ExpectedStatement(context.Background(), who)
	require.NoError(t, err)
	return eng.ApplyForLoan(context.Background(), who, zkp.ProofArtifact{}, st.Strings(), amount, "Agriculture")
}

func prove(t *testing.T, eng *Engine, who common.Address, land, income uint64) (zkp.ProofArtifact, []string) {
	t.Helper()
	st, err := eng.ExpectedStatement(context.Background(), who)
	require.NoError(t, err)
	proof, inputs, err := testKeys(t).Prover().Prove(st, land, income)
	require.NoError(t, err)
	return proof, inputs
}

func TestFullLoanScenario(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, testKeys(t).Verifier())
	issue(t, eng, farmer)

	proof, inputs := prove(t, eng, farmer, 5, 200000)
	id, err := eng.ApplyForLoan(ctx, farmer, proof, inputs, 50000, "Agriculture")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	loan, err := eng.GetLoan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, loan.Status)
	assert.Equal(t, uint64(50000), loan.RequestedAmount)
	assert.Equal(t, farmer, loan.Farmer)

	_, err = eng.ReviewLoan(ctx, officer, id)
	require.NoError(t, err)
	_, err = eng.SanctionLoan(ctx, officer, id, 40000)
	require.NoError(t, err)

	loan, err = eng.DisburseFunds(ctx, auditor, id, 25000, "ipfs://Qm1")
	require.NoError(t, err)
	assert.Equal(t, uint64(25000), loan.DisbursedAmount)
	assert.Equal(t, uint64(15000), loan.Remaining())

	_, err = eng.DisburseFunds(ctx, auditor, id, 20000, "ipfs://Qm2")
	assert.ErrorIs(t, err, domain.ErrAmountExceedsRemaining)
	assert.Equal(t, domain.KindAmountExceedsRemaining, domain.KindOf(err))

	loan, err = eng.GetLoan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSanctioned, loan.Status)
	assert.Equal(t, uint64(40000), loan.SanctionedAmount)
	assert.Equal(t, uint64(25000), loan.DisbursedAmount)
	require.Len(t, loan.Bills, 1)
	assert.Equal(t, "ipfs://Qm1", loan.Bills[0].Hash)
	assert.Equal(t, uint64(25000), loan.Bills[0].Amount)

	// the remainder closes the loan
	_, err = eng.DisburseFunds(ctx, auditor, id, 15000, "ipfs://Qm3")
	require.NoError(t, err)
	_, err = eng.DisburseFunds(ctx, auditor, id, 1, "ipfs://Qm4")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	history, err := eng.GetLoanHistory(ctx, id)
	require.NoError(t, err)
	var types []domain.EventType
	for _, e := range history {
		types = append(types, e.Type)
	}
	assert.Equal(t, []domain.EventType{
		domain.EventLoanCreate,
		domain.EventLoanReview,
		domain.EventLoanSanction,
		domain.EventLoanDisburse,
		domain.EventLoanDisburse,
	}, types)
}

func TestProofReplayIsRejected(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, testKeys(t).Verifier())
	issue(t, eng, farmer)
	issue(t, eng, other)

	proof, inputs := prove(t, eng, farmer, 5, 200000)
	_, err := eng.ApplyForLoan(ctx, farmer, proof, inputs, 50000, "Agriculture")
	require.NoError(t, err)

	t.Run("same proof again", func(t *testing.T) {
		_, err := eng.ApplyForLoan(ctx, farmer, proof, inputs, 50000, "Agriculture")
		assert.ErrorIs(t, err, domain.ErrProofRejected)
	})
	t.Run("proof of another applicant", func(t *testing.T) {
		_, err := eng.ApplyForLoan(ctx, other, proof, inputs, 50000, "Agriculture")
		assert.ErrorIs(t, err, domain.ErrProofRejected)
	})
	t.Run("fresh proof for the next slot", func(t *testing.T) {
		proof, inputs := prove(t, eng, farmer, 5, 200000)
		id, err := eng.ApplyForLoan(ctx, farmer, proof, inputs, 10000, "Livestock")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)
	})
}

func TestIneligibleApplicantIsRejected(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, testKeys(t).Verifier())
	issue(t, eng, farmer)

	proof, inputs := prove(t, eng, farmer, 2, 200000)
	_, err := eng.ApplyForLoan(ctx, farmer, proof, inputs, 50000, "Agriculture")
	assert.ErrorIs(t, err, domain.ErrProofRejected)

	// claiming Eligible=1 with a proof of Eligible=0 fails verification
	st, err := eng.ExpectedStatement(ctx, farmer)
	require.NoError(t, err)
	_, err = eng.ApplyForLoan(ctx, farmer, proof, st.Strings(), 50000, "Agriculture")
	assert.ErrorIs(t, err, domain.ErrProofRejected)

	count, err := eng.LoanCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReviewTwiceFails(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)
	id, err := applyWithStub(t, eng, farmer, 50000)
	require.NoError(t, err)

	_, err = eng.ReviewLoan(ctx, officer, id)
	require.NoError(t, err)
	_, err = eng.ReviewLoan(ctx, officer, id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	var opErr *domain.OperationError
	require.True(t, errors.As(err, &opErr))
	require.NotNil(t, opErr.LoanID)
	assert.Equal(t, id, *opErr.LoanID)
	require.NotNil(t, opErr.Status)
	assert.Equal(t, domain.StatusUnderReview, *opErr.Status)
}

func TestRevokedCredentialCannotApply(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)

	_, err := eng.RevokeCredential(ctx, issuer, farmer)
	require.NoError(t, err)

	_, err = applyWithStub(t, eng, farmer, 50000)
	assert.ErrorIs(t, err, domain.ErrNoActiveCredential)

	// re-issuance reactivates the credential
	issue(t, eng, farmer)
	_, err = applyWithStub(t, eng, farmer, 50000)
	assert.NoError(t, err)
}

func TestUncredentialedCannotApply(t *testing.T) {
	eng := newTestEngine(t, stubVerifier{ok: true})
	_, err := applyWithStub(t, eng, farmer, 50000)
	assert.ErrorIs(t, err, domain.ErrNoActiveCredential)
}

func TestNonIssuerCannotIssue(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})

	for _, caller := range []common.Address{officer, auditor, farmer} {
		_, err := eng.IssueCredential(ctx, caller, farmer)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = eng.RevokeCredential(ctx, caller, farmer)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}

	active, err := eng.IsCredentialActive(ctx, farmer)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestCredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})

	_, err := eng.RevokeCredential(ctx, issuer, farmer)
	assert.ErrorIs(t, err, domain.ErrNotIssued)
	_, err = eng.GetCredential(ctx, farmer)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cred, err := eng.IssueCredential(ctx, issuer, farmer)
	require.NoError(t, err)
	assert.True(t, cred.IsIssued)
	assert.False(t, cred.IsRevoked)
	assert.Equal(t, issuer, cred.Issuer)
	assert.Equal(t, testNow, cred.IssuedAt)

	_, err = eng.IssueCredential(ctx, issuer, farmer)
	assert.ErrorIs(t, err, domain.ErrAlreadyActive)

	_, err = eng.RevokeCredential(ctx, issuer, farmer)
	require.NoError(t, err)
	cred, err = eng.RevokeCredential(ctx, issuer, farmer)
	require.NoError(t, err)
	assert.True(t, cred.IsIssued)
	assert.True(t, cred.IsRevoked)

	total, active, err := eng.CredentialStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Zero(t, active)
}

func TestApplyValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		verifier ProofVerifier
		inputs   func(st zkp.PublicStatement) []string
		amount   uint64
		category string
		want     error
	}{
		{"zero amount", stubVerifier{true}, nil, 0, "Agriculture", domain.ErrInvalidApplication},
		{"empty category", stubVerifier{true}, nil, 100, "  ", domain.ErrInvalidApplication},
		{"unknown category", stubVerifier{true}, nil, 100, "Real Estate", domain.ErrInvalidApplication},
		{"proof fails", stubVerifier{false}, nil, 100, "Agriculture", domain.ErrProofRejected},
		{"short input vector", stubVerifier{true}, func(st zkp.PublicStatement) []string { return st.Strings()[:4] }, 100, "Agriculture", domain.ErrProofRejected},
		{"garbage input", stubVerifier{true}, func(st zkp.PublicStatement) []string {
			in := st.Strings()
			in[1] = "three"
			return in
		}, 100, "Agriculture", domain.ErrProofRejected},
		{"lowered threshold", stubVerifier{true}, func(st zkp.PublicStatement) []string {
			in := st.Strings()
			in[1] = "1"
			return in
		}, 100, "Agriculture", domain.ErrProofRejected},
		{"not eligible", stubVerifier{true}, func(st zkp.PublicStatement) []string {
			in := st.Strings()
			in[0] = "0"
			return in
		}, 100, "Agriculture", domain.ErrProofRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			eng := newTestEngine(t, tc.verifier)
			issue(t, eng, farmer)

			st, err := eng.ExpectedStatement(ctx, farmer)
			require.NoError(t, err)
			inputs := st.Strings()
			if tc.inputs != nil {
				inputs = tc.inputs(st)
			}
			_, err = eng.ApplyForLoan(ctx, farmer, zkp.ProofArtifact{}, inputs, tc.amount, tc.category)
			assert.ErrorIs(t, err, tc.want)

			count, err := eng.LoanCount(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestCategoryIsCanonicalized(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)

	st, err := eng.ExpectedStatement(ctx, farmer)
	require.NoError(t, err)
	id, err := eng.ApplyForLoan(ctx, farmer, zkp.ProofArtifact{}, st.Strings(), 100, "  crop production ")
	require.NoError(t, err)

	loan, err := eng.GetLoan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Crop Production", loan.LoanCategory)
}

func TestRoleGuards(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)
	id, err := applyWithStub(t, eng, farmer, 50000)
	require.NoError(t, err)

	for _, caller := range []common.Address{issuer, auditor, farmer} {
		_, err = eng.ReviewLoan(ctx, caller, id)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = eng.RejectLoan(ctx, caller, id)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}

	_, err = eng.ReviewLoan(ctx, officer, id)
	require.NoError(t, err)
	_, err = eng.SanctionLoan(ctx, auditor, id, 100)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = eng.SanctionLoan(ctx, officer, id, 40000)
	require.NoError(t, err)
	_, err = eng.DisburseFunds(ctx, officer, id, 100, "ipfs://Qm1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUnknownLoan(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})

	_, err := eng.GetLoan(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = eng.GetLoanHistory(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = eng.ReviewLoan(ctx, officer, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var opErr *domain.OperationError
	require.True(t, errors.As(err, &opErr))
	require.NotNil(t, opErr.LoanID)
	assert.Equal(t, uint64(7), *opErr.LoanID)
}

func TestRejectClosesLoan(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)

	fromInProgress, err := applyWithStub(t, eng, farmer, 50000)
	require.NoError(t, err)
	fromReview, err := applyWithStub(t, eng, farmer, 50000)
	require.NoError(t, err)

	_, err = eng.RejectLoan(ctx, officer, fromInProgress)
	require.NoError(t, err)
	_, err = eng.ReviewLoan(ctx, officer, fromReview)
	require.NoError(t, err)
	loan, err := eng.RejectLoan(ctx, officer, fromReview)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, loan.Status)

	_, err = eng.ReviewLoan(ctx, officer, fromInProgress)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = eng.SanctionLoan(ctx, officer, fromReview, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = eng.RejectLoan(ctx, officer, fromReview)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSanctionGuards(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)
	id, err := applyWithStub(t, eng, farmer, 50000)
	require.NoError(t, err)

	_, err = eng.SanctionLoan(ctx, officer, id, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = eng.DisburseFunds(ctx, auditor, id, 100, "ipfs://Qm1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = eng.ReviewLoan(ctx, officer, id)
	require.NoError(t, err)
	_, err = eng.SanctionLoan(ctx, officer, id, 50001)
	assert.ErrorIs(t, err, domain.ErrAmountExceedsRemaining)
	_, err = eng.SanctionLoan(ctx, officer, id, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidApplication)

	loan, err := eng.SanctionLoan(ctx, officer, id, 50000)
	require.NoError(t, err)
	assert.Equal(t, uint64(50000), loan.SanctionedAmount)

	_, err = eng.SanctionLoan(ctx, officer, id, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = eng.DisburseFunds(ctx, auditor, id, 100, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidApplication)
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)
	id, err := applyWithStub(t, eng, farmer, 50000)
	require.NoError(t, err)

	before, err := eng.GetLoanHistory(ctx, id)
	require.NoError(t, err)

	_, err = eng.SanctionLoan(ctx, officer, id, 100)
	require.Error(t, err)

	after, err := eng.GetLoanHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))

	loan, err := eng.GetLoan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, loan.Status)
	assert.Zero(t, loan.SanctionedAmount)
}

func TestLoansByFarmer(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)
	issue(t, eng, other)

	for _, who := range []common.Address{farmer, other, farmer} {
		_, err := applyWithStub(t, eng, who, 1000)
		require.NoError(t, err)
	}

	ids, err := eng.GetLoanIDsByFarmer(ctx, farmer)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 2}, ids)

	// lookups are case-insensitive because addresses are bytes
	mixed, err := domain.ParseAddress("0x78731d3ca6b7e34ac0f824c42a7cc18a495cabab")
	require.NoError(t, err)
	loans, err := eng.GetLoansByFarmer(ctx, mixed)
	require.NoError(t, err)
	assert.Len(t, loans, 2)

	loans, err = eng.GetLoansByFarmer(ctx, auditor)
	require.NoError(t, err)
	assert.Empty(t, loans)

	st, err := eng.ExpectedStatement(ctx, farmer)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.Nonce)
}

func TestListLoansByStatus(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)
	for i := 0; i < 3; i++ {
		_, err := applyWithStub(t, eng, farmer, 1000)
		require.NoError(t, err)
	}
	_, err := eng.ReviewLoan(ctx, officer, 1)
	require.NoError(t, err)

	status := domain.StatusInProgress
	loans, total, err := eng.ListLoans(ctx, repositories.LoanFilter{Status: &status, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, loans, 1)
	assert.Equal(t, uint64(2), loans[0].ID)
}

func TestConcurrentApplicationsGetDenseIDs(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})

	const n = 16
	applicants := make([]common.Address, n)
	for i := range applicants {
		applicants[i] = common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
		issue(t, eng, applicants[i])
	}

	var wg sync.WaitGroup
	ids := make([]uint64, n)
	errs := make([]error, n)
	for i := range applicants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := eng.ExpectedStatement(ctx, applicants[i])
			if err != nil {
				errs[i] = err
				return
			}
			ids[i], errs[i] = eng.ApplyForLoan(ctx, applicants[i], zkp.ProofArtifact{}, st.Strings(), 1000, "Agriculture")
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for i := range ids {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "duplicate id %d", ids[i])
		seen[ids[i]] = true
	}
	for id := uint64(0); id < n; id++ {
		assert.True(t, seen[id], "missing id %d", id)
	}
}
