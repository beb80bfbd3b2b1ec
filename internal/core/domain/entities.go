package domain

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Role represents an authority role in the system
type Role string

const (
	RoleIssuer      Role = "ISSUER"
	RoleBankOfficer Role = "BANK_OFFICER"
	RoleAuditor     Role = "AUDITOR"
)

// Roles lists every role in display order
var Roles = []Role{RoleIssuer, RoleBankOfficer, RoleAuditor}

// ParseRole parses a role name (case-insensitive, "-" accepted for "_")
func ParseRole(name string) (Role, bool) {
	r := Role(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_")))
	switch r {
	case RoleIssuer, RoleBankOfficer, RoleAuditor:
		return r, true
	}
	return "", false
}

// RoleAssignment holds the three singleton role slots.
// A zero address means the slot is unassigned.
type RoleAssignment struct {
	Issuer      common.Address
	BankOfficer common.Address
	Auditor     common.Address
}

// Holder returns the identity assigned to role
func (a RoleAssignment) Holder(role Role) (common.Address, bool) {
	var addr common.Address
	switch role {
	case RoleIssuer:
		addr = a.Issuer
	case RoleBankOfficer:
		addr = a.BankOfficer
	case RoleAuditor:
		addr = a.Auditor
	default:
		return common.Address{}, false
	}
	return addr, addr != (common.Address{})
}

// With returns a copy of the assignment with role set to identity
func (a RoleAssignment) With(role Role, identity common.Address) RoleAssignment {
	switch role {
	case RoleIssuer:
		a.Issuer = identity
	case RoleBankOfficer:
		a.BankOfficer = identity
	case RoleAuditor:
		a.Auditor = identity
	}
	return a
}

// RolesOf returns the roles held by identity
func (a RoleAssignment) RolesOf(identity common.Address) []Role {
	var held []Role
	for _, r := range Roles {
		if h, ok := a.Holder(r); ok && h == identity {
			held = append(held, r)
		}
	}
	return held
}

// Credential is an issuer-granted, revocable authorization bound to one identity
type Credential struct {
	Owner     common.Address
	Issuer    common.Address
	IssuedAt  time.Time
	IsIssued  bool
	IsRevoked bool
}

// IsActive reports whether the credential gates loan application
func (c *Credential) IsActive() bool {
	return c != nil && c.IsIssued && !c.IsRevoked
}

// LoanStatus is the lifecycle state of a loan application
type LoanStatus uint8

const (
	StatusInProgress LoanStatus = iota
	StatusUnderReview
	StatusSanctioned
	StatusRejected
)

var statusNames = [...]string{"IN_PROGRESS", "UNDER_REVIEW", "SANCTIONED", "REJECTED"}

func (s LoanStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "UNKNOWN"
}

// Valid reports whether s is a known status
func (s LoanStatus) Valid() bool {
	return int(s) < len(statusNames)
}

// ParseLoanStatus parses a status name or its numeric code
func ParseLoanStatus(v string) (LoanStatus, bool) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for i, name := range statusNames {
		if v == name || (len(v) == 1 && v[0] == byte('0'+i)) {
			return LoanStatus(i), true
		}
	}
	return 0, false
}

// BillReference records the justification of one disbursement
type BillReference struct {
	Hash       string
	Amount     uint64
	RecordedAt time.Time
}

// LoanApplication is one loan record owned by the ledger
type LoanApplication struct {
	ID               uint64
	Farmer           common.Address
	LoanCategory     string
	RequestedAmount  uint64
	SanctionedAmount uint64
	DisbursedAmount  uint64
	Status           LoanStatus
	Bills            []BillReference
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Remaining returns the sanctioned amount not yet disbursed
func (l *LoanApplication) Remaining() uint64 {
	if l.DisbursedAmount >= l.SanctionedAmount {
		return 0
	}
	return l.SanctionedAmount - l.DisbursedAmount
}

// FullyDisbursed reports whether a sanctioned loan has been paid out entirely
func (l *LoanApplication) FullyDisbursed() bool {
	return l.Status == StatusSanctioned && l.SanctionedAmount > 0 && l.DisbursedAmount == l.SanctionedAmount
}

// Clone returns a deep copy
func (l *LoanApplication) Clone() *LoanApplication {
	c := *l
	c.Bills = append([]BillReference(nil), l.Bills...)
	return &c
}

// EventType identifies a ledger mutation in the audit history
type EventType string

const (
	EventCredentialIssue  EventType = "CREDENTIAL_ISSUE"
	EventCredentialRevoke EventType = "CREDENTIAL_REVOKE"
	EventRoleAssign       EventType = "ROLE_ASSIGN"
	EventLoanCreate       EventType = "LOAN_CREATE"
	EventLoanReview       EventType = "LOAN_REVIEW"
	EventLoanSanction     EventType = "LOAN_SANCTION"
	EventLoanReject       EventType = "LOAN_REJECT"
	EventLoanDisburse     EventType = "LOAN_DISBURSE"
)

// LoanEvent is one entry of the append-only audit history
type LoanEvent struct {
	ID         uuid.UUID
	Type       EventType
	Actor      common.Address
	LoanID     *uint64
	Subject    *common.Address
	FromStatus *LoanStatus
	ToStatus   *LoanStatus
	Amount     uint64
	Reference  string
	CreatedAt  time.Time
}
