package repositories

import (
	"context"
	"errors"

	"kcc-loanhub/internal/adapters/persistence/models"
	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// LoanRepositoryGorm handles loan ledger data access
type LoanRepositoryGorm struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepositoryGorm {
	return &LoanRepositoryGorm{db: db}
}

func orderedBills(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// Create creates a new loan with its preassigned ID
func (r *LoanRepositoryGorm) Create(ctx context.Context, loan *domain.LoanApplication) error {
	return r.db.WithContext(ctx).Create(models.LoanFromDomain(loan)).Error
}

// Get gets a loan by ID with its bills
func (r *LoanRepositoryGorm) Get(ctx context.Context, id uint64) (*domain.LoanApplication, error) {
	var loan models.LoanApplication
	err := r.db.WithContext(ctx).
		Preload("Bills", orderedBills).
		First(&loan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return loan.ToDomain(), nil
}

// Update writes status and amounts of an existing loan
func (r *LoanRepositoryGorm) Update(ctx context.Context, loan *domain.LoanApplication) error {
	m := models.LoanFromDomain(loan)
	result := r.db.WithContext(ctx).
		Model(&models.LoanApplication{}).
		Where("id = ?", loan.ID).
		Updates(map[string]interface{}{
			"status":            m.Status,
			"sanctioned_amount": m.SanctionedAmount,
			"disbursed_amount":  m.DisbursedAmount,
			"updated_at":        m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendBill appends a bill reference at position seq
func (r *LoanRepositoryGorm) AppendBill(ctx context.Context, loanID uint64, seq int, bill domain.BillReference) error {
	return r.db.WithContext(ctx).Create(&models.BillReference{
		LoanID:     loanID,
		Seq:        seq,
		Hash:       bill.Hash,
		Amount:     bill.Amount,
		RecordedAt: bill.RecordedAt,
	}).Error
}

// Count counts all loans, which is also the next loan ID
func (r *LoanRepositoryGorm) Count(ctx context.Context) (uint64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.LoanApplication{}).Count(&total).Error
	return uint64(total), err
}

// CountByFarmer counts the loans of one farmer
func (r *LoanRepositoryGorm) CountByFarmer(ctx context.Context, farmer common.Address) (uint64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.LoanApplication{}).
		Where("farmer = ?", domain.CanonicalAddress(farmer)).
		Count(&total).Error
	return uint64(total), err
}

// ListByFarmer lists the loans of one farmer in ID order
func (r *LoanRepositoryGorm) ListByFarmer(ctx context.Context, farmer common.Address) ([]*domain.LoanApplication, error) {
	var loans []*models.LoanApplication
	err := r.db.WithContext(ctx).
		Preload("Bills", orderedBills).
		Where("farmer = ?", domain.CanonicalAddress(farmer)).
		Order("id ASC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return toDomainLoans(loans), nil
}

// List lists loans with filter and pagination, newest first
func (r *LoanRepositoryGorm) List(ctx context.Context, filter LoanFilter) ([]*domain.LoanApplication, int64, error) {
	var loans []*models.LoanApplication
	var total int64

	query := r.db.WithContext(ctx).Model(&models.LoanApplication{})
	if filter.Status != nil {
		query = query.Where("status = ?", uint8(*filter.Status))
	}
	if filter.Farmer != nil {
		query = query.Where("farmer = ?", domain.CanonicalAddress(*filter.Farmer))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}
	err := query.
		Preload("Bills", orderedBills).
		Order("id DESC").
		Find(&loans).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainLoans(loans), total, nil
}

// All returns every loan in ID order
func (r *LoanRepositoryGorm) All(ctx context.Context) ([]*domain.LoanApplication, error) {
	var loans []*models.LoanApplication
	err := r.db.WithContext(ctx).
		Preload("Bills", orderedBills).
		Order("id ASC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return toDomainLoans(loans), nil
}

func toDomainLoans(in []*models.LoanApplication) []*domain.LoanApplication {
	out := make([]*domain.LoanApplication, 0, len(in))
	for _, l := range in {
		out = append(out, l.ToDomain())
	}
	return out
}
