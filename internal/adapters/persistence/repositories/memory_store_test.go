package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	farmerA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	farmerB = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func createLoan(t *testing.T, s Store, farmer common.Address) *domain.LoanApplication {
	t.Helper()
	ctx := context.Background()
	next, err := s.Loans().Count(ctx)
	require.NoError(t, err)

	loan := &domain.LoanApplication{
		ID:              next,
		Farmer:          farmer,
		LoanCategory:    "Agriculture",
		RequestedAmount: 50000,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, s.Loans().Create(ctx, loan))
	return loan
}

func TestMemoryLoansDenseIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	createLoan(t, s, farmerA)
	createLoan(t, s, farmerB)
	createLoan(t, s, farmerA)

	err := s.Loans().Create(ctx, &domain.LoanApplication{ID: 7, Farmer: farmerA})
	assert.Error(t, err)

	mine, err := s.Loans().ListByFarmer(ctx, farmerA)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, uint64(0), mine[0].ID)
	assert.Equal(t, uint64(2), mine[1].ID)

	n, err := s.Loans().CountByFarmer(ctx, farmerB)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	_, err = s.Loans().Get(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryLoansReturnCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	createLoan(t, s, farmerA)

	loan, err := s.Loans().Get(ctx, 0)
	require.NoError(t, err)
	loan.Status = domain.StatusRejected

	stored, err := s.Loans().Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, stored.Status)
}

func TestMemoryListFilterAndPagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		createLoan(t, s, farmerA)
	}
	loan, err := s.Loans().Get(ctx, 1)
	require.NoError(t, err)
	loan.Status = domain.StatusUnderReview
	require.NoError(t, s.Loans().Update(ctx, loan))

	status := domain.StatusUnderReview
	loans, total, err := s.Loans().List(ctx, LoanFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, uint64(1), loans[0].ID)

	page, total, err := s.Loans().List(ctx, LoanFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(2), page[0].ID)
	assert.Equal(t, uint64(1), page[1].ID)

	empty, _, err := s.Loans().List(ctx, LoanFilter{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryTransactionRollsBack(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	createLoan(t, s, farmerA)

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx Store) error {
		loan, err := tx.Loans().Get(ctx, 0)
		if err != nil {
			return err
		}
		loan.Status = domain.StatusSanctioned
		loan.SanctionedAmount = 40000
		loan.DisbursedAmount = 100
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return err
		}
		if err := tx.Loans().AppendBill(ctx, 0, 0, domain.BillReference{Hash: "ipfs://x", Amount: 100}); err != nil {
			return err
		}
		if err := tx.Credentials().Save(ctx, &domain.Credential{Owner: farmerB, IsIssued: true}); err != nil {
			return err
		}
		// nested transactions join the outer one
		return tx.Transaction(ctx, func(inner Store) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	loan, err := s.Loans().Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, loan.Status)
	assert.Zero(t, loan.DisbursedAmount)
	assert.Empty(t, loan.Bills)

	_, err = s.Credentials().Get(ctx, farmerB)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryTransactionCommits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx Store) error {
		return tx.Roles().Save(ctx, domain.RoleAssignment{Issuer: farmerA})
	})
	require.NoError(t, err)

	roles, err := s.Roles().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, farmerA, roles.Issuer)
}

func TestMemoryBillsAreOrdered(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	createLoan(t, s, farmerA)

	require.NoError(t, s.Loans().AppendBill(ctx, 0, 0, domain.BillReference{Hash: "ipfs://Qm1", Amount: 10}))
	require.NoError(t, s.Loans().AppendBill(ctx, 0, 1, domain.BillReference{Hash: "ipfs://Qm2", Amount: 20}))
	assert.Error(t, s.Loans().AppendBill(ctx, 0, 5, domain.BillReference{Hash: "ipfs://Qm3", Amount: 30}))

	loan, err := s.Loans().Get(ctx, 0)
	require.NoError(t, err)
	require.Len(t, loan.Bills, 2)
	assert.Equal(t, "ipfs://Qm1", loan.Bills[0].Hash)
	assert.Equal(t, "ipfs://Qm2", loan.Bills[1].Hash)
}

func TestMemoryCredentialCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Credentials().Save(ctx, &domain.Credential{Owner: farmerA, IsIssued: true}))
	require.NoError(t, s.Credentials().Save(ctx, &domain.Credential{Owner: farmerB, IsIssued: true, IsRevoked: true}))

	all, err := s.Credentials().Count(ctx, false)
	require.NoError(t, err)
	active, err := s.Credentials().Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all)
	assert.Equal(t, int64(1), active)
}
