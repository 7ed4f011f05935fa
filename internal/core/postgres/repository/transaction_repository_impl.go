package repository

import (
	"context"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) ports.TransactionRepository {
	return &transactionRepository{db: db}
}

// CreateIfAbsent relies on the unique (task_public_id, event_name) index:
// concurrent consumers racing on the same redelivered event both issue the
// insert, and exactly one of them affects a row.
func (r *transactionRepository) CreateIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_public_id"}, {Name: "event_name"}},
			DoNothing: true,
		}).
		Create(tx)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *transactionRepository) FindByTask(ctx context.Context, taskPublicID uuid.UUID) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := r.db.WithContext(ctx).
		Where("task_public_id = ?", taskPublicID).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}
