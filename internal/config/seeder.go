package config

import (
	"context"
	"fmt"
	"log"

	"kcc-loanhub/internal/adapters/persistence/repositories"
	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/services"
)

// Seeder bootstraps the ledger store
type Seeder struct {
	store repositories.Store
}

// NewSeeder creates a new seeder instance
func NewSeeder(store repositories.Store) *Seeder {
	return &Seeder{store: store}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context, cfg *Config) error {
	log.Println("🌱 Bootstrapping role assignment...")

	roles, err := services.NewRoleAuthority(s.store).Bootstrap(ctx, cfg.Roles.Assignment())
	if err != nil {
		return fmt.Errorf("role bootstrap failed: %w", err)
	}

	for _, r := range domain.Roles {
		if holder, ok := roles.Holder(r); ok {
			log.Printf("   %-12s %s", r, domain.CanonicalAddress(holder))
		} else {
			log.Printf("⚠️ %-12s unassigned", r)
		}
	}

	log.Println("✅ Role bootstrap completed")
	return nil
}

// Assignment converts the configured addresses to a role assignment
func (r RolesConfig) Assignment() domain.RoleAssignment {
	return domain.RoleAssignment{
		Issuer:      r.Issuer,
		BankOfficer: r.BankOfficer,
		Auditor:     r.Auditor,
	}
}

// EligibilityPolicy converts the configured thresholds for the engine
func (p PolicyConfig) EligibilityPolicy() services.EligibilityPolicy {
	return services.EligibilityPolicy{
		MinLand:           p.MinLandAcres,
		MaxIncome:         p.MaxAnnualIncome,
		AllowedCategories: p.Categories,
		MaxCategoryLength: p.MaxCategoryLength,
	}
}
