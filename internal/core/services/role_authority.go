package services

import (
	"context"
	"errors"
	"fmt"

	"kcc-loanhub/internal/adapters/persistence/repositories"
	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
)

// RoleAuthority holds the role assignment and guards privileged operations
type RoleAuthority struct {
	store repositories.Store
}

// NewRoleAuthority creates a role authority over store
func NewRoleAuthority(store repositories.Store) *RoleAuthority {
	return &RoleAuthority{store: store}
}

// Assignment returns the current role slots; all empty before bootstrap
func (a *RoleAuthority) Assignment(ctx context.Context) (domain.RoleAssignment, error) {
	roles, err := a.store.Roles().Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RoleAssignment{}, nil
		}
		return domain.RoleAssignment{}, err
	}
	return *roles, nil
}

// Authorize fails with ErrUnauthorized unless caller holds role
func (a *RoleAuthority) Authorize(ctx context.Context, role domain.Role, caller common.Address) error {
	roles, err := a.Assignment(ctx)
	if err != nil {
		return err
	}
	holder, ok := roles.Holder(role)
	if !ok || holder != caller {
		return domain.OpError("authorize", domain.ErrUnauthorized,
			fmt.Sprintf("%s is not %s", caller.Hex(), role))
	}
	return nil
}

// Assign sets the bank officer or auditor slot. Only the issuer may call it,
// and the issuer slot itself is not assignable here.
func (a *RoleAuthority) Assign(ctx context.Context, caller common.Address, role domain.Role, identity common.Address) error {
	if err := a.Authorize(ctx, domain.RoleIssuer, caller); err != nil {
		return err
	}
	switch role {
	case domain.RoleBankOfficer, domain.RoleAuditor:
	case domain.RoleIssuer:
		return domain.OpError("assign", domain.ErrUnauthorized, "issuer is fixed at initialization")
	default:
		return domain.OpError("assign", domain.ErrNotFound, fmt.Sprintf("unknown role %q", role))
	}
	if identity == (common.Address{}) {
		return domain.OpError("assign", domain.ErrInvalidApplication, "identity is required")
	}

	roles, err := a.Assignment(ctx)
	if err != nil {
		return err
	}
	return a.store.Roles().Save(ctx, roles.With(role, identity))
}

// Get returns the holder of role
func (a *RoleAuthority) Get(ctx context.Context, role domain.Role) (common.Address, error) {
	roles, err := a.Assignment(ctx)
	if err != nil {
		return common.Address{}, err
	}
	holder, ok := roles.Holder(role)
	if !ok {
		return common.Address{}, domain.OpError("getRole", domain.ErrNotFound, fmt.Sprintf("%s is not assigned", role))
	}
	return holder, nil
}

// Bootstrap persists the initial assignment. It is the only path that sets the
// issuer: a persisted issuer is never replaced, and persisted officer or
// auditor slots win over the bootstrap values.
func (a *RoleAuthority) Bootstrap(ctx context.Context, initial domain.RoleAssignment) (domain.RoleAssignment, error) {
	if initial.Issuer == (common.Address{}) {
		return domain.RoleAssignment{}, errors.New("bootstrap requires an issuer")
	}

	var effective domain.RoleAssignment
	err := a.store.Transaction(ctx, func(tx repositories.Store) error {
		current, err := tx.Roles().Get(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			effective = initial
			return tx.Roles().Save(ctx, initial)
		}
		if err != nil {
			return err
		}
		if current.Issuer != initial.Issuer {
			return fmt.Errorf("%w: persisted %s, configured %s", domain.ErrIssuerMismatch, current.Issuer.Hex(), initial.Issuer.Hex())
		}

		effective = *current
		for _, r := range []domain.Role{domain.RoleBankOfficer, domain.RoleAuditor} {
			if _, ok := effective.Holder(r); ok {
				continue
			}
			if h, ok := initial.Holder(r); ok {
				effective = effective.With(r, h)
			}
		}
		if effective == *current {
			return nil
		}
		return tx.Roles().Save(ctx, effective)
	})
	return effective, err
}
