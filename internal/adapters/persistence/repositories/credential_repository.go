package repositories

import (
	"context"
	"errors"

	"kcc-loanhub/internal/adapters/persistence/models"
	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepositoryGorm handles credential data access
type CredentialRepositoryGorm struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *gorm.DB) *CredentialRepositoryGorm {
	return &CredentialRepositoryGorm{db: db}
}

// Get gets the credential of owner
func (r *CredentialRepositoryGorm) Get(ctx context.Context, owner common.Address) (*domain.Credential, error) {
	var cred models.Credential
	err := r.db.WithContext(ctx).
		Where("owner = ?", domain.CanonicalAddress(owner)).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return cred.ToDomain(), nil
}

// Save inserts or overwrites a credential
func (r *CredentialRepositoryGorm) Save(ctx context.Context, credential *domain.Credential) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(models.CredentialFromDomain(credential)).Error
}

// Count counts credentials, optionally only active ones
func (r *CredentialRepositoryGorm) Count(ctx context.Context, activeOnly bool) (int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&models.Credential{})
	if activeOnly {
		query = query.Where("is_issued = ? AND is_revoked = ?", true, false)
	}
	err := query.Count(&total).Error
	return total, err
}
