package models

import (
	"time"

	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================
// Credential Registry
// ============================================================

// Credential farmer credential, one row per owner
type Credential struct {
	Owner     string    `gorm:"primaryKey;size:42" json:"owner"`
	Issuer    string    `gorm:"size:42;not null" json:"issuer"`
	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
	IsIssued  bool      `gorm:"not null;default:false" json:"is_issued"`
	IsRevoked bool      `gorm:"not null;default:false" json:"is_revoked"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Credential) TableName() string {
	return "credentials"
}

// CredentialFromDomain converts a domain credential
func CredentialFromDomain(c *domain.Credential) *Credential {
	return &Credential{
		Owner:     domain.CanonicalAddress(c.Owner),
		Issuer:    domain.CanonicalAddress(c.Issuer),
		IssuedAt:  c.IssuedAt,
		IsIssued:  c.IsIssued,
		IsRevoked: c.IsRevoked,
	}
}

// ToDomain converts to the domain credential
func (c *Credential) ToDomain() *domain.Credential {
	return &domain.Credential{
		Owner:     common.HexToAddress(c.Owner),
		Issuer:    common.HexToAddress(c.Issuer),
		IssuedAt:  c.IssuedAt,
		IsIssued:  c.IsIssued,
		IsRevoked: c.IsRevoked,
	}
}

// CredentialResponse DTO
type CredentialResponse struct {
	Owner     string    `json:"owner"`
	Issuer    string    `json:"issuer"`
	IssuedAt  time.Time `json:"issued_at"`
	IsIssued  bool      `json:"is_issued"`
	IsRevoked bool      `json:"is_revoked"`
	Active    bool      `json:"active"`
}

// NewCredentialResponse builds the API view of a credential
func NewCredentialResponse(c *domain.Credential) *CredentialResponse {
	return &CredentialResponse{
		Owner:     c.Owner.Hex(),
		Issuer:    c.Issuer.Hex(),
		IssuedAt:  c.IssuedAt,
		IsIssued:  c.IsIssued,
		IsRevoked: c.IsRevoked,
		Active:    c.IsActive(),
	}
}

// ============================================================
// Role Authority
// ============================================================

// RoleAssignmentSingletonID is the only row id of role_assignments
const RoleAssignmentSingletonID = 1

// RoleAssignment the three role slots, a single row
type RoleAssignment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Issuer      string    `gorm:"size:42;not null" json:"issuer"`
	BankOfficer string    `gorm:"size:42" json:"bank_officer"`
	Auditor     string    `gorm:"size:42" json:"auditor"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RoleAssignment) TableName() string {
	return "role_assignments"
}

// RoleAssignmentFromDomain converts a domain role assignment
func RoleAssignmentFromDomain(a domain.RoleAssignment) *RoleAssignment {
	return &RoleAssignment{
		ID:          RoleAssignmentSingletonID,
		Issuer:      addressOrEmpty(a.Issuer),
		BankOfficer: addressOrEmpty(a.BankOfficer),
		Auditor:     addressOrEmpty(a.Auditor),
	}
}

// ToDomain converts to the domain role assignment
func (r *RoleAssignment) ToDomain() domain.RoleAssignment {
	return domain.RoleAssignment{
		Issuer:      addressOrZero(r.Issuer),
		BankOfficer: addressOrZero(r.BankOfficer),
		Auditor:     addressOrZero(r.Auditor),
	}
}

// RoleAssignmentResponse DTO, unassigned slots are null
type RoleAssignmentResponse struct {
	Issuer      *string `json:"issuer"`
	BankOfficer *string `json:"bank_officer"`
	Auditor     *string `json:"auditor"`
}

// NewRoleAssignmentResponse builds the API view of the role slots
func NewRoleAssignmentResponse(a domain.RoleAssignment) *RoleAssignmentResponse {
	slot := func(r domain.Role) *string {
		if h, ok := a.Holder(r); ok {
			s := h.Hex()
			return &s
		}
		return nil
	}
	return &RoleAssignmentResponse{
		Issuer:      slot(domain.RoleIssuer),
		BankOfficer: slot(domain.RoleBankOfficer),
		Auditor:     slot(domain.RoleAuditor),
	}
}

// ============================================================
// Loan Ledger
// ============================================================

// LoanApplication is the persisted KCC loan application
type LoanApplication struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Farmer           string    `gorm:"size:42;not null;index" json:"farmer"`
	LoanCategory     string    `gorm:"size:64;not null" json:"loan_category"`
	RequestedAmount  uint64    `gorm:"not null" json:"requested_amount"`
	SanctionedAmount uint64    `gorm:"not null;default:0" json:"sanctioned_amount"`
	DisbursedAmount  uint64    `gorm:"not null;default:0" json:"disbursed_amount"`
	Status           uint8     `gorm:"not null;default:0;index" json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Relations
	Bills []BillReference `gorm:"foreignKey:LoanID" json:"bills,omitempty"`
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}

// LoanFromDomain converts a domain loan, bills excluded
func LoanFromDomain(l *domain.LoanApplication) *LoanApplication {
	return &LoanApplication{
		ID:               l.ID,
		Farmer:           domain.CanonicalAddress(l.Farmer),
		LoanCategory:     l.LoanCategory,
		RequestedAmount:  l.RequestedAmount,
		SanctionedAmount: l.SanctionedAmount,
		DisbursedAmount:  l.DisbursedAmount,
		Status:           uint8(l.Status),
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

// ToDomain converts to the domain loan
func (l *LoanApplication) ToDomain() *domain.LoanApplication {
	loan := &domain.LoanApplication{
		ID:               l.ID,
		Farmer:           common.HexToAddress(l.Farmer),
		LoanCategory:     l.LoanCategory,
		RequestedAmount:  l.RequestedAmount,
		SanctionedAmount: l.SanctionedAmount,
		DisbursedAmount:  l.DisbursedAmount,
		Status:           domain.LoanStatus(l.Status),
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
	for i := range l.Bills {
		loan.Bills = append(loan.Bills, l.Bills[i].ToDomain())
	}
	return loan
}

// BillReference records the evidence of one disbursement
type BillReference struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LoanID     uint64    `gorm:"not null;uniqueIndex:idx_bill_loan_seq" json:"loan_id"`
	Seq        int       `gorm:"not null;uniqueIndex:idx_bill_loan_seq" json:"seq"`
	Hash       string    `gorm:"size:512;not null" json:"hash"`
	Amount     uint64    `gorm:"not null" json:"amount"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`
}

func (BillReference) TableName() string {
	return "bill_references"
}

// ToDomain converts to the domain bill reference
func (b *BillReference) ToDomain() domain.BillReference {
	return domain.BillReference{Hash: b.Hash, Amount: b.Amount, RecordedAt: b.RecordedAt}
}

// BillResponse DTO
type BillResponse struct {
	Hash       string    `json:"hash"`
	Amount     uint64    `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// LoanResponse DTO
type LoanResponse struct {
	ID               uint64         `json:"id"`
	Farmer           string         `json:"farmer"`
	LoanCategory     string         `json:"loan_category"`
	RequestedAmount  uint64         `json:"requested_amount"`
	SanctionedAmount uint64         `json:"sanctioned_amount"`
	DisbursedAmount  uint64         `json:"disbursed_amount"`
	RemainingAmount  uint64         `json:"remaining_amount"`
	Status           string         `json:"status"`
	StatusCode       uint8          `json:"status_code"`
	BillCount        int            `json:"bill_count"`
	Bills            []BillResponse `json:"bills"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NewLoanResponse builds the API view of a loan
func NewLoanResponse(l *domain.LoanApplication) *LoanResponse {
	resp := &LoanResponse{
		ID:               l.ID,
		Farmer:           l.Farmer.Hex(),
		LoanCategory:     l.LoanCategory,
		RequestedAmount:  l.RequestedAmount,
		SanctionedAmount: l.SanctionedAmount,
		DisbursedAmount:  l.DisbursedAmount,
		RemainingAmount:  l.Remaining(),
		Status:           l.Status.String(),
		StatusCode:       uint8(l.Status),
		BillCount:        len(l.Bills),
		Bills:            make([]BillResponse, 0, len(l.Bills)),
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
	for _, b := range l.Bills {
		resp.Bills = append(resp.Bills, BillResponse{Hash: b.Hash, Amount: b.Amount, RecordedAt: b.RecordedAt})
	}
	return resp
}

// NewLoanResponses builds the API view of a loan list
func NewLoanResponses(loans []*domain.LoanApplication) []*LoanResponse {
	out := make([]*LoanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, NewLoanResponse(l))
	}
	return out
}

// ============================================================
// Audit history
// ============================================================

// LoanEvent is one append-only ledger history entry
type LoanEvent struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Type       string    `gorm:"size:32;not null;index" json:"type"`
	Actor      string    `gorm:"size:42;not null" json:"actor"`
	LoanID     *uint64   `gorm:"index" json:"loan_id"`
	Subject    *string   `gorm:"size:42" json:"subject"`
	FromStatus *uint8    `json:"from_status"`
	ToStatus   *uint8    `json:"to_status"`
	Amount     uint64    `gorm:"not null;default:0" json:"amount"`
	Reference  string    `gorm:"size:512" json:"reference"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

func (LoanEvent) TableName() string {
	return "loan_events"
}

// EventFromDomain converts a domain event
func EventFromDomain(e *domain.LoanEvent) *LoanEvent {
	m := &LoanEvent{
		ID:        e.ID.String(),
		Type:      string(e.Type),
		Actor:     domain.CanonicalAddress(e.Actor),
		LoanID:    e.LoanID,
		Amount:    e.Amount,
		Reference: e.Reference,
		CreatedAt: e.CreatedAt,
	}
	if e.Subject != nil {
		s := domain.CanonicalAddress(*e.Subject)
		m.Subject = &s
	}
	if e.FromStatus != nil {
		v := uint8(*e.FromStatus)
		m.FromStatus = &v
	}
	if e.ToStatus != nil {
		v := uint8(*e.ToStatus)
		m.ToStatus = &v
	}
	return m
}

// ToDomain converts to the domain event
func (m *LoanEvent) ToDomain() *domain.LoanEvent {
	e := &domain.LoanEvent{
		ID:        uuid.MustParse(m.ID),
		Type:      domain.EventType(m.Type),
		Actor:     common.HexToAddress(m.Actor),
		LoanID:    m.LoanID,
		Amount:    m.Amount,
		Reference: m.Reference,
		CreatedAt: m.CreatedAt,
	}
	if m.Subject != nil {
		s := common.HexToAddress(*m.Subject)
		e.Subject = &s
	}
	if m.FromStatus != nil {
		s := domain.LoanStatus(*m.FromStatus)
		e.FromStatus = &s
	}
	if m.ToStatus != nil {
		s := domain.LoanStatus(*m.ToStatus)
		e.ToStatus = &s
	}
	return e
}

// LoanEventResponse DTO
type LoanEventResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Actor      string    `json:"actor"`
	LoanID     *uint64   `json:"loan_id,omitempty"`
	Subject    *string   `json:"subject,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Amount     uint64    `json:"amount,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewLoanEventResponses builds the API view of an event history
func NewLoanEventResponses(events []*domain.LoanEvent) []*LoanEventResponse {
	out := make([]*LoanEventResponse, 0, len(events))
	for _, e := range events {
		r := &LoanEventResponse{
			ID:        e.ID.String(),
			Type:      string(e.Type),
			Actor:     e.Actor.Hex(),
			LoanID:    e.LoanID,
			Amount:    e.Amount,
			Reference: e.Reference,
			CreatedAt: e.CreatedAt,
		}
		if e.Subject != nil {
			s := e.Subject.Hex()
			r.Subject = &s
		}
		if e.FromStatus != nil {
			r.FromStatus = e.FromStatus.String()
		}
		if e.ToStatus != nil {
			r.ToStatus = e.ToStatus.String()
		}
		out = append(out, r)
	}
	return out
}

func addressOrEmpty(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return domain.CanonicalAddress(a)
}

func addressOrZero(s string) common.Address {
	if s == "" {
		return common.Address{}
	}
	return common.HexToAddress(s)
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Credential{},
		&RoleAssignment{},
		&LoanApplication{},
		&BillReference{},
		&LoanEvent{},
	)
}
