package repositories

import (
	"context"

	"kcc-loanhub/internal/adapters/persistence/models"
	"kcc-loanhub/internal/core/domain"

	"gorm.io/gorm"
)

// EventRepositoryGorm handles audit history data access
type EventRepositoryGorm struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) *EventRepositoryGorm {
	return &EventRepositoryGorm{db: db}
}

// Append appends one event
func (r *EventRepositoryGorm) Append(ctx context.Context, event *domain.LoanEvent) error {
	return r.db.WithContext(ctx).Create(models.EventFromDomain(event)).Error
}

// ListByLoan lists the events of one loan, oldest first
func (r *EventRepositoryGorm) ListByLoan(ctx context.Context, loanID uint64) ([]*domain.LoanEvent, error) {
	var rows []*models.LoanEvent
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]*domain.LoanEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.ToDomain())
	}
	return events, nil
}
