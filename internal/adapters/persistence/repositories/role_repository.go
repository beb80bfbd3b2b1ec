package repositories

import (
	"context"
	"errors"

	"kcc-loanhub/internal/adapters/persistence/models"
	"kcc-loanhub/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepositoryGorm handles role assignment data access
type RoleRepositoryGorm struct {
	db *gorm.DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *gorm.DB) *RoleRepositoryGorm {
	return &RoleRepositoryGorm{db: db}
}

// Get gets the role assignment, ErrNotFound before bootstrap
func (r *RoleRepositoryGorm) Get(ctx context.Context) (*domain.RoleAssignment, error) {
	var row models.RoleAssignment
	err := r.db.WithContext(ctx).First(&row, models.RoleAssignmentSingletonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a := row.ToDomain()
	return &a, nil
}

// Save overwrites the role assignment
func (r *RoleRepositoryGorm) Save(ctx context.Context, assignment domain.RoleAssignment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(models.RoleAssignmentFromDomain(assignment)).Error
}
