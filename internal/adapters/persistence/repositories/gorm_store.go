package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormStore is the MySQL-backed store
type GormStore struct {
	db          *gorm.DB
	credentials *CredentialRepositoryGorm
	roles       *RoleRepositoryGorm
	loans       *LoanRepositoryGorm
	events      *EventRepositoryGorm
}

// NewGormStore creates a store over db (or over an open transaction)
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:          db,
		credentials: NewCredentialRepository(db),
		roles:       NewRoleRepository(db),
		loans:       NewLoanRepository(db),
		events:      NewEventRepository(db),
	}
}

func (s *GormStore) Credentials() CredentialRepository { return s.credentials }
func (s *GormStore) Roles() RoleRepository             { return s.roles }
func (s *GormStore) Loans() LoanRepository             { return s.loans }
func (s *GormStore) Events() EventRepository           { return s.events }

// Transaction runs fn inside one database transaction
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}

// Ping checks the database connection
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
