package services

import (
	"context"
	"errors"
	"time"

	"kcc-loanhub/internal/adapters/persistence/repositories"
	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
)

// CredentialRegistry tracks which identities hold an active credential
type CredentialRegistry struct {
	store repositories.Store
	roles *RoleAuthority
}

// NewCredentialRegistry creates a credential registry over store
func NewCredentialRegistry(store repositories.Store, roles *RoleAuthority) *CredentialRegistry {
	return &CredentialRegistry{store: store, roles: roles}
}

// Issue grants subject a credential. An active credential cannot be issued
// again; a revoked one is reactivated with a fresh issuedAt and issuer.
func (r *CredentialRegistry) Issue(ctx context.Context, caller, subject common.Address, now time.Time) (*domain.Credential, error) {
	if err := r.roles.Authorize(ctx, domain.RoleIssuer, caller); err != nil {
		return nil, err
	}
	if subject == (common.Address{}) {
		return nil, domain.OpError("issue", domain.ErrInvalidApplication, "subject is required")
	}

	existing, err := r.lookup(ctx, subject)
	if err != nil {
		return nil, err
	}
	if existing.IsActive() {
		return nil, domain.OpError("issue", domain.ErrAlreadyActive, subject.Hex())
	}

	cred := &domain.Credential{
		Owner:     subject,
		Issuer:    caller,
		IssuedAt:  now,
		IsIssued:  true,
		IsRevoked: false,
	}
	if err := r.store.Credentials().Save(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Revoke marks the credential of subject revoked; isIssued stays true
func (r *CredentialRegistry) Revoke(ctx context.Context, caller, subject common.Address) (*domain.Credential, error) {
	if err := r.roles.Authorize(ctx, domain.RoleIssuer, caller); err != nil {
		return nil, err
	}

	cred, err := r.lookup(ctx, subject)
	if err != nil {
		return nil, err
	}
	if cred == nil || !cred.IsIssued {
		return nil, domain.OpError("revoke", domain.ErrNotIssued, subject.Hex())
	}

	cred.IsRevoked = true
	if err := r.store.Credentials().Save(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// IsActive reports whether subject holds an issued, non-revoked credential
func (r *CredentialRegistry) IsActive(ctx context.Context, subject common.Address) (bool, error) {
	cred, err := r.lookup(ctx, subject)
	if err != nil {
		return false, err
	}
	return cred.IsActive(), nil
}

// Get returns the credential record of subject
func (r *CredentialRegistry) Get(ctx context.Context, subject common.Address) (*domain.Credential, error) {
	cred, err := r.lookup(ctx, subject)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, domain.OpError("getCredential", domain.ErrNotFound, subject.Hex())
	}
	return cred, nil
}

// lookup returns nil without error when subject has no record
func (r *CredentialRegistry) lookup(ctx context.Context, subject common.Address) (*domain.Credential, error) {
	cred, err := r.store.Credentials().Get(ctx, subject)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return cred, err
}
