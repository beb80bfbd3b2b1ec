package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"kcc-loanhub/internal/adapters/persistence/repositories"
	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/ledger"
	"kcc-loanhub/internal/core/zkp"
	"kcc-loanhub/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EligibilityPolicy holds the thresholds every proof is checked against and
// the accepted loan categories. It is fixed when the engine is built.
type EligibilityPolicy struct {
	MinLand           uint64
	MaxIncome         uint64
	AllowedCategories []string
	MaxCategoryLength int
}

// NormalizeCategory trims category and returns its canonical spelling
func (p EligibilityPolicy) NormalizeCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "", errors.New("loan category is required")
	}
	if p.MaxCategoryLength > 0 && len(category) > p.MaxCategoryLength {
		return "", fmt.Errorf("loan category longer than %d characters", p.MaxCategoryLength)
	}
	if len(p.AllowedCategories) == 0 {
		return category, nil
	}
	for _, allowed := range p.AllowedCategories {
		if strings.EqualFold(allowed, category) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("loan category %q is not offered", category)
}

// Engine is the single entry point for every ledger operation.
// Mutations are serialized and each runs in one store transaction.
type Engine struct {
	mu       sync.RWMutex
	store    repositories.Store
	verifier ProofVerifier
	policy   EligibilityPolicy
	now      func() time.Time
	log      *logrus.Entry
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides the engine log entry
func WithLogger(entry *logrus.Entry) EngineOption {
	return func(e *Engine) { e.log = entry }
}

// NewEngine creates a new application engine
func NewEngine(store repositories.Store, verifier ProofVerifier, policy EligibilityPolicy, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		verifier: verifier,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Component("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the eligibility policy
func (e *Engine) Policy() EligibilityPolicy {
	return e.policy
}

// mutate runs fn under the write lock inside one store transaction and logs the outcome
func (e *Engine) mutate(ctx context.Context, op string, caller common.Address, fields logrus.Fields, fn func(tx repositories.Store, now time.Time) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	err := e.store.Transaction(ctx, func(tx repositories.Store) error {
		return fn(tx, now)
	})

	entry := e.log.WithFields(fields).WithFields(logrus.Fields{
		"op":     op,
		"caller": domain.CanonicalAddress(caller),
	})
	switch kind := domain.KindOf(err); {
	case err == nil:
		entry.Info("operation accepted")
	case kind == domain.KindInternal:
		entry.WithError(err).Error("operation failed")
	default:
		entry.WithError(err).WithField("kind", string(kind)).Warn("operation rejected")
	}
	return err
}

func appendEvent(ctx context.Context, tx repositories.Store, event domain.LoanEvent) error {
	event.ID = uuid.New()
	return tx.Events().Append(ctx, &event)
}

// ============================================================
// Credentials and roles
// ============================================================

// IssueCredential grants subject an active credential. Issuer only.
func (e *Engine) IssueCredential(ctx context.Context, caller, subject common.Address) (*domain.Credential, error) {
	var cred *domain.Credential
	err := e.mutate(ctx, "issue", caller, logrus.Fields{"subject": domain.CanonicalAddress(subject)},
		func(tx repositories.Store, now time.Time) error {
			var err error
			cred, err = NewCredentialRegistry(tx, NewRoleAuthority(tx)).Issue(ctx, caller, subject, now)
			if err != nil {
				return err
			}
			return appendEvent(ctx, tx, domain.LoanEvent{
				Type:      domain.EventCredentialIssue,
				Actor:     caller,
				Subject:   &subject,
				CreatedAt: now,
			})
		})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// RevokeCredential revokes the credential of subject. Issuer only.
func (e *Engine) RevokeCredential(ctx context.Context, caller, subject common.Address) (*domain.Credential, error) {
	var cred *domain.Credential
	err := e.mutate(ctx, "revoke", caller, logrus.Fields{"subject": domain.CanonicalAddress(subject)},
		func(tx repositories.Store, now time.Time) error {
			var err error
			cred, err = NewCredentialRegistry(tx, NewRoleAuthority(tx)).Revoke(ctx, caller, subject)
			if err != nil {
				return err
			}
			return appendEvent(ctx, tx, domain.LoanEvent{
				Type:      domain.EventCredentialRevoke,
				Actor:     caller,
				Subject:   &subject,
				CreatedAt: now,
			})
		})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// AssignRole sets the bank officer or auditor. Issuer only.
func (e *Engine) AssignRole(ctx context.Context, caller common.Address, role domain.Role, identity common.Address) error {
	return e.mutate(ctx, "assign", caller, logrus.Fields{"role": string(role), "subject": domain.CanonicalAddress(identity)},
		func(tx repositories.Store, now time.Time) error {
			if err := NewRoleAuthority(tx).Assign(ctx, caller, role, identity); err != nil {
				return err
			}
			return appendEvent(ctx, tx, domain.LoanEvent{
				Type:      domain.EventRoleAssign,
				Actor:     caller,
				Subject:   &identity,
				Reference: string(role),
				CreatedAt: now,
			})
		})
}

// ============================================================
// Loan lifecycle
// ============================================================

// ApplyForLoan records a new IN_PROGRESS loan for caller once the proof
// verifies against the statement the engine expects from caller
func (e *Engine) ApplyForLoan(ctx context.Context, caller common.Address, proof zkp.ProofArtifact, publicInputs []string, requestedAmount uint64, category string) (uint64, error) {
	const op = "applyForLoan"

	var id uint64
	fields := logrus.Fields{"requested_amount": requestedAmount}
	err := e.mutate(ctx, op, caller, fields, func(tx repositories.Store, now time.Time) error {
		active, err := NewCredentialRegistry(tx, nil).IsActive(ctx, caller)
		if err != nil {
			return err
		}
		if !active {
			return domain.OpError(op, domain.ErrNoActiveCredential, caller.Hex())
		}

		nonce, err := tx.Loans().CountByFarmer(ctx, caller)
		if err != nil {
			return err
		}
		expected := zkp.NewStatement(caller, e.policy.MinLand, e.policy.MaxIncome, nonce).Vector()

		supplied, err := zkp.ParseInputs(publicInputs)
		if err != nil {
			return domain.OpError(op, domain.ErrProofRejected, err.Error())
		}
		if !zkp.EqualInputs(supplied, expected) {
			return domain.OpError(op, domain.ErrProofRejected, "public inputs do not match the expected statement")
		}
		if !e.verifier.Verify(proof, expected) {
			return domain.OpError(op, domain.ErrProofRejected, "proof verification failed")
		}

		if requestedAmount == 0 {
			return domain.OpError(op, domain.ErrInvalidApplication, "requested amount must be greater than 0")
		}
		canonical, err := e.policy.NormalizeCategory(category)
		if err != nil {
			return domain.OpError(op, domain.ErrInvalidApplication, err.Error())
		}

		id, err = tx.Loans().Count(ctx)
		if err != nil {
			return err
		}
		loan := &domain.LoanApplication{
			ID:              id,
			Farmer:          caller,
			LoanCategory:    canonical,
			RequestedAmount: requestedAmount,
			Status:          domain.StatusInProgress,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return err
		}
		fields["loan_id"] = id

		to := domain.StatusInProgress
		return appendEvent(ctx, tx, domain.LoanEvent{
			Type:      domain.EventLoanCreate,
			Actor:     caller,
			LoanID:    &id,
			ToStatus:  &to,
			Amount:    requestedAmount,
			Reference: canonical,
			CreatedAt: now,
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ReviewLoan moves a loan to UNDER_REVIEW. Bank officer only.
func (e *Engine) ReviewLoan(ctx context.Context, caller common.Address, loanID uint64) (*domain.LoanApplication, error) {
	return e.transition(ctx, "review", domain.RoleBankOfficer, caller, loanID, domain.EventLoanReview,
		func(loan *domain.LoanApplication, now time.Time) (*domain.LoanEvent, error) {
			return &domain.LoanEvent{}, ledger.Review(loan, now)
		})
}

// SanctionLoan approves a loan for amount. Bank officer only.
func (e *Engine) SanctionLoan(ctx context.Context, caller common.Address, loanID, amount uint64) (*domain.LoanApplication, error) {
	return e.transition(ctx, "sanction", domain.RoleBankOfficer, caller, loanID, domain.EventLoanSanction,
		func(loan *domain.LoanApplication, now time.Time) (*domain.LoanEvent, error) {
			return &domain.LoanEvent{Amount: amount}, ledger.Sanction(loan, amount, now)
		})
}

// RejectLoan closes a loan. Bank officer only.
func (e *Engine) RejectLoan(ctx context.Context, caller common.Address, loanID uint64) (*domain.LoanApplication, error) {
	return e.transition(ctx, "reject", domain.RoleBankOfficer, caller, loanID, domain.EventLoanReject,
		func(loan *domain.LoanApplication, now time.Time) (*domain.LoanEvent, error) {
			return &domain.LoanEvent{}, ledger.Reject(loan, now)
		})
}

// DisburseFunds pays out amount against a sanctioned loan, backed by billHash. Auditor only.
func (e *Engine) DisburseFunds(ctx context.Context, caller common.Address, loanID, amount uint64, billHash string) (*domain.LoanApplication, error) {
	return e.transition(ctx, "disburse", domain.RoleAuditor, caller, loanID, domain.EventLoanDisburse,
		func(loan *domain.LoanApplication, now time.Time) (*domain.LoanEvent, error) {
			bill, err := ledger.Disburse(loan, amount, billHash, now)
			return &domain.LoanEvent{Amount: bill.Amount, Reference: bill.Hash}, err
		})
}

// transition loads a loan, applies a ledger step and persists the result.
// A disbursement is detected by the bill count growing.
func (e *Engine) transition(
	ctx context.Context,
	op string,
	role domain.Role,
	caller common.Address,
	loanID uint64,
	eventType domain.EventType,
	apply func(loan *domain.LoanApplication, now time.Time) (*domain.LoanEvent, error),
) (*domain.LoanApplication, error) {
	var updated *domain.LoanApplication
	err := e.mutate(ctx, op, caller, logrus.Fields{"loan_id": loanID}, func(tx repositories.Store, now time.Time) error {
		if err := NewRoleAuthority(tx).Authorize(ctx, role, caller); err != nil {
			return err
		}

		loan, err := loadLoan(ctx, tx, op, loanID)
		if err != nil {
			return err
		}
		from := loan.Status
		bills := len(loan.Bills)

		event, err := apply(loan, now)
		if err != nil {
			return err
		}

		if err := tx.Loans().Update(ctx, loan); err != nil {
			return err
		}
		if len(loan.Bills) > bills {
			if err := tx.Loans().AppendBill(ctx, loan.ID, bills, loan.Bills[bills]); err != nil {
				return err
			}
		}

		to := loan.Status
		event.Type = eventType
		event.Actor = caller
		event.LoanID = &loan.ID
		event.FromStatus = &from
		event.ToStatus = &to
		event.CreatedAt = now
		if err := appendEvent(ctx, tx, *event); err != nil {
			return err
		}
		updated = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func loadLoan(ctx context.Context, store repositories.Store, op string, loanID uint64) (*domain.LoanApplication, error) {
	loan, err := store.Loans().Get(ctx, loanID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.OperationError{Op: op, Err: domain.ErrNotFound, LoanID: &loanID}
	}
	return loan, err
}

// ============================================================
// Reads
// ============================================================

// GetLoan returns loan id
func (e *Engine) GetLoan(ctx context.Context, id uint64) (*domain.LoanApplication, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return loadLoan(ctx, e.store, "getLoan", id)
}

// GetLoansByFarmer returns the loans of farmer ordered by id
func (e *Engine) GetLoansByFarmer(ctx context.Context, farmer common.Address) ([]*domain.LoanApplication, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.store.Loans().ListByFarmer(ctx, farmer)
}

// GetLoanIDsByFarmer returns the loan ids of farmer in application order
func (e *Engine) GetLoanIDsByFarmer(ctx context.Context, farmer common.Address) ([]uint64, error) {
	loans, err := e.GetLoansByFarmer(ctx, farmer)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, len(loans))
	for i, l := range loans {
		ids[i] = l.ID
	}
	return ids, nil
}

// GetRole returns the holder of role
func (e *Engine) GetRole(ctx context.Context, role domain.Role) (common.Address, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return NewRoleAuthority(e.store).Get(ctx, role)
}

// GetRoles returns the whole role assignment
func (e *Engine) GetRoles(ctx context.Context) (domain.RoleAssignment, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return NewRoleAuthority(e.store).Assignment(ctx)
}

// GetCredential returns the credential record of subject
func (e *Engine) GetCredential(ctx context.Context, subject common.Address) (*domain.Credential, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return NewCredentialRegistry(e.store, nil).Get(ctx, subject)
}

// IsCredentialActive reports whether subject may apply for loans
func (e *Engine) IsCredentialActive(ctx context.Context, subject common.Address) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return NewCredentialRegistry(e.store, nil).IsActive(ctx, subject)
}

// LoanCount returns the number of loans, which is also the next loan id
func (e *Engine) LoanCount(ctx context.Context) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.store.Loans().Count(ctx)
}

// ListLoans returns a filtered page of loans, newest first, and the total match count
func (e *Engine) ListLoans(ctx context.Context, filter repositories.LoanFilter) ([]*domain.LoanApplication, int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.store.Loans().List(ctx, filter)
}

// GetLoanHistory returns the events recorded for loan id, oldest first
func (e *Engine) GetLoanHistory(ctx context.Context, id uint64) ([]*domain.LoanEvent, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := loadLoan(ctx, e.store, "getLoanHistory", id); err != nil {
		return nil, err
	}
	return e.store.Events().ListByLoan(ctx, id)
}

// ExpectedStatement returns the statement caller has to prove for their next application
func (e *Engine) ExpectedStatement(ctx context.Context, caller common.Address) (zkp.PublicStatement, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	nonce, err := e.store.Loans().CountByFarmer(ctx, caller)
	if err != nil {
		return zkp.PublicStatement{}, err
	}
	return zkp.NewStatement(caller, e.policy.MinLand, e.policy.MaxIncome, nonce), nil
}

// AllLoans returns every loan, for reporting
func (e *Engine) AllLoans(ctx context.Context) ([]*domain.LoanApplication, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.store.Loans().All(ctx)
}

// CredentialStats returns the number of credentials ever issued and currently active
func (e *Engine) CredentialStats(ctx context.Context) (total, active int64, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if total, err = e.store.Credentials().Count(ctx, false); err != nil {
		return 0, 0, err
	}
	if active, err = e.store.Credentials().Count(ctx, true); err != nil {
		return 0, 0, err
	}
	return total, active, nil
}
