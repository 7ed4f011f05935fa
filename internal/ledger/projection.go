package ledger

import (
	"context"
	"fmt"
	"time"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"

	"github.com/google/uuid"
)

// ProjectionWriter keeps accounting's copy of tracker tasks. Every apply is a
// merge, so events for one task may arrive in any order and any number of
// times and still converge on the same row.
type ProjectionWriter struct {
	repo ports.ProjectionRepository
	now  func() time.Time
}

func NewProjectionWriter(repo ports.ProjectionRepository) *ProjectionWriter {
	return &ProjectionWriter{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (p *ProjectionWriter) ApplyCreated(ctx context.Context, data domain.TaskCreatedData) error {
	return p.apply(ctx, domain.AccountingTask{
		PublicID:   data.PublicID,
		Name:       data.Name,
		JiraID:     data.JiraID,
		Status:     data.Status,
		AssigneeID: data.Assignee,
		Version:    data.Version,
	})
}

func (p *ProjectionWriter) ApplyAssigned(ctx context.Context, data domain.TaskAssignedData) error {
	assignee := data.Assignee
	return p.apply(ctx, domain.AccountingTask{
		PublicID:   data.PublicID,
		Status:     data.Status,
		AssigneeID: &assignee,
		Version:    data.Version,
	})
}

func (p *ProjectionWriter) ApplyCompleted(ctx context.Context, data domain.TaskCompletedData) error {
	completedBy := data.CompletedBy
	return p.apply(ctx, domain.AccountingTask{
		PublicID:   data.PublicID,
		Name:       data.Name,
		JiraID:     data.JiraID,
		Status:     data.Status,
		AssigneeID: &completedBy,
		Version:    data.Version,
	})
}

func (p *ProjectionWriter) apply(ctx context.Context, in domain.AccountingTask) error {
	if in.PublicID == uuid.Nil {
		return fmt.Errorf("%w: task public_id is required", domain.ErrInvalidInput)
	}
	in.UpdatedAt = p.now()
	if err := p.repo.Merge(ctx, in.PublicID, func(cur *domain.AccountingTask) { cur.Merge(in) }); err != nil {
		return fmt.Errorf("project task %s: %w", in.PublicID, err)
	}
	return nil
}
