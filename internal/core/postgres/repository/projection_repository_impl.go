package repository

import (
	"context"
	"errors"
	"fmt"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type projectionRepository struct {
	db *gorm.DB
}

func NewProjectionRepository(db *gorm.DB) ports.ProjectionRepository {
	return &projectionRepository{db: db}
}

// Merge reads the row FOR UPDATE (or starts from a zero value), lets fn fold
// the new observation in and upserts the result. Two consumers touching the
// same task serialize on the row lock; a first insert race is settled by the
// primary key conflict clause.
func (r *projectionRepository) Merge(ctx context.Context, publicID uuid.UUID, fn func(current *domain.AccountingTask)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.AccountingTask
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("public_id = ?", publicID).
			First(&current).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		current.PublicID = publicID

		fn(&current)

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "public_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "jira_id", "status", "assignee_id", "version", "updated_at"}),
		}).Create(&current).Error
	})
}

func (r *projectionRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*domain.AccountingTask, error) {
	var task domain.AccountingTask
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, publicID)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}
