// Package ledger owns the loan state machine and disbursement accounting.
// Every function checks all guards before writing any field, so a failed
// call leaves the loan untouched.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"kcc-loanhub/internal/core/domain"
)

// allowedTransitions lists the legal edges. SANCTIONED -> SANCTIONED is a disbursement.
var allowedTransitions = map[domain.LoanStatus][]domain.LoanStatus{
	domain.StatusInProgress:  {domain.StatusUnderReview, domain.StatusRejected},
	domain.StatusUnderReview: {domain.StatusSanctioned, domain.StatusRejected},
	domain.StatusSanctioned:  {domain.StatusSanctioned},
	domain.StatusRejected:    {},
}

// MaxBillHashLength bounds the stored bill reference
const MaxBillHashLength = 512

// CanTransition checks if a status transition is allowed
func CanTransition(from, to domain.LoanStatus) bool {
	for _, allowedTo := range allowedTransitions[from] {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the allowed next statuses for a given status
func AllowedTransitions(from domain.LoanStatus) []domain.LoanStatus {
	return append([]domain.LoanStatus(nil), allowedTransitions[from]...)
}

// IsTerminal reports whether no further mutation is accepted
func IsTerminal(loan *domain.LoanApplication) bool {
	return loan.Status == domain.StatusRejected || loan.FullyDisbursed()
}

func guard(op string, loan *domain.LoanApplication, to domain.LoanStatus) error {
	if IsTerminal(loan) {
		return domain.LoanError(op, domain.ErrInvalidState, loan, "")
	}
	if !CanTransition(loan.Status, to) {
		return domain.LoanError(op, domain.ErrInvalidTransition, loan,
			fmt.Sprintf("%s -> %s", loan.Status, to))
	}
	return nil
}

// Review moves an IN_PROGRESS loan to UNDER_REVIEW
func Review(loan *domain.LoanApplication, now time.Time) error {
	if err := guard("review", loan, domain.StatusUnderReview); err != nil {
		return err
	}
	loan.Status = domain.StatusUnderReview
	loan.UpdatedAt = now
	return nil
}

// Sanction approves an UNDER_REVIEW loan and fixes the disbursable amount
func Sanction(loan *domain.LoanApplication, amount uint64, now time.Time) error {
	if err := guard("sanction", loan, domain.StatusSanctioned); err != nil {
		return err
	}
	// a loan only reaches SANCTIONED once, through this edge
	if loan.Status != domain.StatusUnderReview {
		return domain.LoanError("sanction", domain.ErrInvalidTransition, loan, "")
	}
	if amount == 0 {
		return domain.LoanError("sanction", domain.ErrInvalidApplication, loan, "amount must be greater than 0")
	}
	if amount > loan.RequestedAmount {
		return domain.LoanError("sanction", domain.ErrAmountExceedsRemaining, loan,
			fmt.Sprintf("sanction %d exceeds requested %d", amount, loan.RequestedAmount))
	}
	loan.Status = domain.StatusSanctioned
	loan.SanctionedAmount = amount
	loan.UpdatedAt = now
	return nil
}

// Reject closes an IN_PROGRESS or UNDER_REVIEW loan
func Reject(loan *domain.LoanApplication, now time.Time) error {
	if err := guard("reject", loan, domain.StatusRejected); err != nil {
		return err
	}
	loan.Status = domain.StatusRejected
	loan.UpdatedAt = now
	return nil
}

// Disburse pays out one instalment against a sanctioned loan and returns the recorded bill
func Disburse(loan *domain.LoanApplication, amount uint64, billHash string, now time.Time) (domain.BillReference, error) {
	if err := guard("disburse", loan, domain.StatusSanctioned); err != nil {
		return domain.BillReference{}, err
	}
	if loan.Status != domain.StatusSanctioned {
		return domain.BillReference{}, domain.LoanError("disburse", domain.ErrInvalidTransition, loan, "loan is not sanctioned")
	}
	billHash = strings.TrimSpace(billHash)
	if amount == 0 {
		return domain.BillReference{}, domain.LoanError("disburse", domain.ErrInvalidApplication, loan, "amount must be greater than 0")
	}
	if billHash == "" {
		return domain.BillReference{}, domain.LoanError("disburse", domain.ErrInvalidApplication, loan, "bill hash is required")
	}
	if len(billHash) > MaxBillHashLength {
		return domain.BillReference{}, domain.LoanError("disburse", domain.ErrInvalidApplication, loan, "bill hash too long")
	}
	if amount > loan.Remaining() {
		return domain.BillReference{}, domain.LoanError("disburse", domain.ErrAmountExceedsRemaining, loan,
			fmt.Sprintf("requested %d, remaining %d", amount, loan.Remaining()))
	}

	bill := domain.BillReference{Hash: billHash, Amount: amount, RecordedAt: now}
	loan.DisbursedAmount += amount
	loan.Bills = append(loan.Bills, bill)
	loan.UpdatedAt = now
	return bill, nil
}

// CheckInvariants verifies the accounting invariants of a single loan
func CheckInvariants(loan *domain.LoanApplication) error {
	if !loan.Status.Valid() {
		return fmt.Errorf("loan %d: unknown status %d", loan.ID, loan.Status)
	}
	if loan.DisbursedAmount > loan.SanctionedAmount {
		return fmt.Errorf("loan %d: disbursed %d exceeds sanctioned %d", loan.ID, loan.DisbursedAmount, loan.SanctionedAmount)
	}
	if (loan.Status == domain.StatusInProgress || loan.Status == domain.StatusUnderReview) && loan.SanctionedAmount != 0 {
		return fmt.Errorf("loan %d: sanctioned amount set while %s", loan.ID, loan.Status)
	}
	if loan.SanctionedAmount > loan.RequestedAmount {
		return fmt.Errorf("loan %d: sanctioned %d exceeds requested %d", loan.ID, loan.SanctionedAmount, loan.RequestedAmount)
	}
	var sum uint64
	for _, b := range loan.Bills {
		if b.Amount > ^uint64(0)-sum {
			return fmt.Errorf("loan %d: bill amounts overflow", loan.ID)
		}
		sum += b.Amount
	}
	if sum != loan.DisbursedAmount {
		return fmt.Errorf("loan %d: bills total %d, disbursed %d", loan.ID, sum, loan.DisbursedAmount)
	}
	return nil
}
