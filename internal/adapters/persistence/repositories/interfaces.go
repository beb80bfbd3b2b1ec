package repositories

import (
	"context"

	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
)

// CredentialRepository defines credential repository interface
type CredentialRepository interface {
	Get(ctx context.Context, owner common.Address) (*domain.Credential, error)
	Save(ctx context.Context, credential *domain.Credential) error
	Count(ctx context.Context, activeOnly bool) (int64, error)
}

// RoleRepository defines role assignment repository interface
type RoleRepository interface {
	Get(ctx context.Context) (*domain.RoleAssignment, error)
	Save(ctx context.Context, assignment domain.RoleAssignment) error
}

// LoanFilter narrows a loan listing
type LoanFilter struct {
	Status *domain.LoanStatus
	Farmer *common.Address
	Offset int
	Limit  int
}

// LoanRepository defines loan ledger repository interface
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.LoanApplication) error
	Get(ctx context.Context, id uint64) (*domain.LoanApplication, error)
	Update(ctx context.Context, loan *domain.LoanApplication) error
	AppendBill(ctx context.Context, loanID uint64, seq int, bill domain.BillReference) error
	Count(ctx context.Context) (uint64, error)
	CountByFarmer(ctx context.Context, farmer common.Address) (uint64, error)
	ListByFarmer(ctx context.Context, farmer common.Address) ([]*domain.LoanApplication, error)
	List(ctx context.Context, filter LoanFilter) ([]*domain.LoanApplication, int64, error)
	All(ctx context.Context) ([]*domain.LoanApplication, error)
}

// EventRepository defines audit history repository interface
type EventRepository interface {
	Append(ctx context.Context, event *domain.LoanEvent) error
	ListByLoan(ctx context.Context, loanID uint64) ([]*domain.LoanEvent, error)
}

// Store bundles the repositories the engine works against.
// Transaction runs fn atomically: either every write in fn lands or none does.
type Store interface {
	Credentials() CredentialRepository
	Roles() RoleRepository
	Loans() LoanRepository
	Events() EventRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
