package repository

import (
	"context"
	"errors"
	"fmt"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new instance of TaskRepository
func NewTaskRepository(db *gorm.DB) ports.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) CreateTask(ctx context.Context, task *domain.Task, msg *domain.OutboxMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return tx.Create(msg).Error
	})
}

func (r *taskRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, publicID)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) ListByAssignee(ctx context.Context, assignee uuid.UUID) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("assignee_id = ?", assignee).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// UpdateTask writes the task only if nobody changed it since it was read.
// The version bump and the outbox insert share the transaction, so an
// event exists iff the state change it describes was committed.
func (r *taskRepository) UpdateTask(ctx context.Context, task *domain.Task, expected domain.TaskStatus, expectedVersion int, msg *domain.OutboxMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Task{}).
			Where("id = ? AND status = ? AND version = ?", task.ID, expected, expectedVersion).
			Updates(map[string]interface{}{
				"status":      task.Status,
				"assignee_id": task.AssigneeID,
				"version":     expectedVersion + 1,
				"updated_at":  task.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: task %s changed concurrently", domain.ErrInvalidState, task.PublicID)
		}
		task.Version = expectedVersion + 1

		return tx.Create(msg).Error
	})
}
