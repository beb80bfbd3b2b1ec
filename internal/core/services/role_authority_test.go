package services

import (
	"context"
	"testing"

	"kcc-loanhub/internal/adapters/persistence/repositories"
	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})
	issue(t, eng, farmer)
	id, err := applyWithStub(t, eng, farmer, 1000)
	require.NoError(t, err)

	require.NoError(t, eng.AssignRole(ctx, issuer, domain.RoleBankOfficer, other))

	holder, err := eng.GetRole(ctx, domain.RoleBankOfficer)
	require.NoError(t, err)
	assert.Equal(t, other, holder)

	// the previous holder lost the role
	_, err = eng.ReviewLoan(ctx, officer, id)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = eng.ReviewLoan(ctx, other, id)
	assert.NoError(t, err)
}

func TestAssignRoleGuards(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, stubVerifier{ok: true})

	tests := []struct {
		name     string
		caller   common.Address
		role     domain.Role
		identity common.Address
		want     error
	}{
		{"non issuer", officer, domain.RoleAuditor, other, domain.ErrUnauthorized},
		{"issuer slot", issuer, domain.RoleIssuer, other, domain.ErrUnauthorized},
		{"unknown role", issuer, domain.Role("TELLER"), other, domain.ErrNotFound},
		{"zero identity", issuer, domain.RoleAuditor, common.Address{}, domain.ErrInvalidApplication},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := eng.AssignRole(ctx, tc.caller, tc.role, tc.identity)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	roles, err := eng.GetRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssignment{Issuer: issuer, BankOfficer: officer, Auditor: auditor}, roles)
}

func TestUnassignedRole(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	roles := NewRoleAuthority(store)
	_, err := roles.Bootstrap(ctx, domain.RoleAssignment{Issuer: issuer})
	require.NoError(t, err)

	_, err = roles.Get(ctx, domain.RoleAuditor)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = roles.Get(ctx, domain.Role("TELLER"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the zero address never holds an unassigned slot
	assert.ErrorIs(t, roles.Authorize(ctx, domain.RoleAuditor, common.Address{}), domain.ErrUnauthorized)
}

func TestAuthorizeBeforeBootstrap(t *testing.T) {
	roles := NewRoleAuthority(repositories.NewMemoryStore())
	err := roles.Authorize(context.Background(), domain.RoleIssuer, issuer)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("fills empty slots only", func(t *testing.T) {
		store := repositories.NewMemoryStore()
		roles := NewRoleAuthority(store)
		_, err := roles.Bootstrap(ctx, domain.RoleAssignment{Issuer: issuer, BankOfficer: officer})
		require.NoError(t, err)

		got, err := roles.Bootstrap(ctx, domain.RoleAssignment{Issuer: issuer, BankOfficer: other, Auditor: auditor})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAssignment{Issuer: issuer, BankOfficer: officer, Auditor: auditor}, got)

		persisted, err := roles.Assignment(ctx)
		require.NoError(t, err)
		assert.Equal(t, got, persisted)
	})

	t.Run("refuses a different issuer", func(t *testing.T) {
		roles := NewRoleAuthority(repositories.NewMemoryStore())
		_, err := roles.Bootstrap(ctx, domain.RoleAssignment{Issuer: issuer})
		require.NoError(t, err)

		_, err = roles.Bootstrap(ctx, domain.RoleAssignment{Issuer: other})
		assert.ErrorIs(t, err, domain.ErrIssuerMismatch)
	})

	t.Run("requires an issuer", func(t *testing.T) {
		roles := NewRoleAuthority(repositories.NewMemoryStore())
		_, err := roles.Bootstrap(ctx, domain.RoleAssignment{BankOfficer: officer})
		assert.Error(t, err)
	})
}
