package domain

import (
	"errors"
	"fmt"
)

// Engine error kinds. Every failed operation surfaces exactly one of these.
var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNoActiveCredential     = errors.New("no active credential")
	ErrProofRejected          = errors.New("proof rejected")
	ErrAlreadyActive          = errors.New("credential already active")
	ErrNotIssued              = errors.New("credential not issued")
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrInvalidState           = errors.New("loan is in a terminal state")
	ErrAmountExceedsRemaining = errors.New("amount exceeds remaining balance")
	ErrInvalidApplication     = errors.New("invalid application")
)

// Input errors raised before reaching the engine
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrIssuerMismatch = errors.New("configured issuer differs from persisted issuer")
)

// Kind is the discriminated name of an engine error
type Kind string

const (
	KindUnauthorized           Kind = "Unauthorized"
	KindNoActiveCredential     Kind = "NoActiveCredential"
	KindProofRejected          Kind = "ProofRejected"
	KindAlreadyActive          Kind = "AlreadyActive"
	KindNotIssued              Kind = "NotIssued"
	KindNotFound               Kind = "NotFound"
	KindInvalidTransition      Kind = "InvalidTransition"
	KindInvalidState           Kind = "InvalidState"
	KindAmountExceedsRemaining Kind = "AmountExceedsRemaining"
	KindInvalidApplication     Kind = "InvalidApplication"
	KindInternal               Kind = "Internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrNoActiveCredential, KindNoActiveCredential},
	{ErrProofRejected, KindProofRejected},
	{ErrAlreadyActive, KindAlreadyActive},
	{ErrNotIssued, KindNotIssued},
	{ErrNotFound, KindNotFound},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrInvalidState, KindInvalidState},
	{ErrAmountExceedsRemaining, KindAmountExceedsRemaining},
	{ErrInvalidApplication, KindInvalidApplication},
}

// KindOf returns the kind of err, or KindInternal for anything unclassified
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// OperationError carries the context a caller needs to decide on a retry
type OperationError struct {
	Op     string
	Err    error
	LoanID *uint64
	Status *LoanStatus
	Detail string
}

func (e *OperationError) Error() string {
	msg := e.Op + ": " + e.Err.Error()
	if e.LoanID != nil {
		msg += fmt.Sprintf(" (loan %d", *e.LoanID)
		if e.Status != nil {
			msg += ", status " + e.Status.String()
		}
		msg += ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Kind returns the discriminated kind of the wrapped error
func (e *OperationError) Kind() Kind {
	return KindOf(e.Err)
}

// OpError builds an OperationError without loan context
func OpError(op string, err error, detail string) *OperationError {
	return &OperationError{Op: op, Err: err, Detail: detail}
}

// LoanError builds an OperationError for a specific loan
func LoanError(op string, err error, loan *LoanApplication, detail string) *OperationError {
	id := loan.ID
	status := loan.Status
	return &OperationError{Op: op, Err: err, LoanID: &id, Status: &status, Detail: detail}
}
