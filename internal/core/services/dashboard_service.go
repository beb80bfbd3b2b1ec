package services

import (
	"context"
	"sort"
	"time"

	"kcc-loanhub/internal/core/domain"
)

// DashboardService aggregates ledger figures for the officer and auditor dashboards
type DashboardService struct {
	ledger LedgerReader
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(ledger LedgerReader) *DashboardService {
	return &DashboardService{ledger: ledger}
}

// DashboardSummary represents dashboard data
type DashboardSummary struct {
	// Loan Statistics
	TotalLoans     int            `json:"total_loans"`
	ByStatus       map[string]int `json:"by_status"`
	AwaitingReview int            `json:"awaiting_review"`
	FullyDisbursed int            `json:"fully_disbursed"`

	// Amounts
	TotalRequested      uint64 `json:"total_requested"`
	TotalSanctioned     uint64 `json:"total_sanctioned"`
	TotalDisbursed      uint64 `json:"total_disbursed"`
	PendingDisbursement uint64 `json:"pending_disbursement"`

	// Credentials
	CredentialsIssued int64 `json:"credentials_issued"`
	CredentialsActive int64 `json:"credentials_active"`

	// Recent Activity
	RecentLoans []LoanSummary `json:"recent_loans"`
}

// LoanSummary represents one row of recent activity
type LoanSummary struct {
	ID              uint64    `json:"id"`
	Farmer          string    `json:"farmer"`
	LoanCategory    string    `json:"loan_category"`
	RequestedAmount uint64    `json:"requested_amount"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const recentLoanLimit = 5

// GetSummary returns the dashboard summary
func (s *DashboardService) GetSummary(ctx context.Context) (*DashboardSummary, error) {
	loans, err := s.ledger.AllLoans(ctx)
	if err != nil {
		return nil, err
	}
	issued, active, err := s.ledger.CredentialStats(ctx)
	if err != nil {
		return nil, err
	}

	data := &DashboardSummary{
		TotalLoans:        len(loans),
		ByStatus:          make(map[string]int, 4),
		CredentialsIssued: issued,
		CredentialsActive: active,
	}
	for _, st := range []domain.LoanStatus{domain.StatusInProgress, domain.StatusUnderReview, domain.StatusSanctioned, domain.StatusRejected} {
		data.ByStatus[st.String()] = 0
	}

	for _, l := range loans {
		data.ByStatus[l.Status.String()]++
		data.TotalRequested += l.RequestedAmount
		data.TotalSanctioned += l.SanctionedAmount
		data.TotalDisbursed += l.DisbursedAmount
		if l.Status == domain.StatusSanctioned {
			data.PendingDisbursement += l.Remaining()
		}
		if l.Status == domain.StatusInProgress {
			data.AwaitingReview++
		}
		if l.FullyDisbursed() {
			data.FullyDisbursed++
		}
	}

	recent := append([]*domain.LoanApplication(nil), loans...)
	sort.Slice(recent, func(i, j int) bool {
		if recent[i].UpdatedAt.Equal(recent[j].UpdatedAt) {
			return recent[i].ID > recent[j].ID
		}
		return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
	})
	if len(recent) > recentLoanLimit {
		recent = recent[:recentLoanLimit]
	}
	data.RecentLoans = make([]LoanSummary, 0, len(recent))
	for _, l := range recent {
		data.RecentLoans = append(data.RecentLoans, LoanSummary{
			ID:              l.ID,
			Farmer:          domain.CanonicalAddress(l.Farmer),
			LoanCategory:    l.LoanCategory,
			RequestedAmount: l.RequestedAmount,
			Status:          l.Status.String(),
			UpdatedAt:       l.UpdatedAt,
		})
	}

	return data, nil
}
