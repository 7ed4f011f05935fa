package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"
	"task-ledger/internal/envelope"
	"task-ledger/internal/logging"
	"task-ledger/internal/publisher"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Assigner picks the user a task goes to.
type Assigner interface {
	Resolve(ctx context.Context) (*domain.User, error)
}

type TaskService interface {
	Create(ctx context.Context, caller *domain.User, name, jiraID string) (*domain.Task, error)
	Complete(ctx context.Context, caller *domain.User, publicID uuid.UUID) (*domain.Task, error)
	Reassign(ctx context.Context, caller *domain.User) (int, error)
	List(ctx context.Context, caller *domain.User) ([]domain.Task, error)
}

// ReassignError reports a bulk reassign that stopped part way. Tasks before
// the failing one stay reassigned and their events are already in the outbox.
type ReassignError struct {
	Reassigned int
	Err        error
}

func (e *ReassignError) Error() string {
	return fmt.Sprintf("reassign stopped after %d tasks: %v", e.Reassigned, e.Err)
}

func (e *ReassignError) Unwrap() error { return e.Err }

type taskService struct {
	repo     ports.TaskRepository
	assigner Assigner
	codec    *envelope.Codec
	now      func() time.Time
}

func NewTaskService(repo ports.TaskRepository, assigner Assigner, codec *envelope.Codec) TaskService {
	return &taskService{
		repo:     repo,
		assigner: assigner,
		codec:    codec,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create builds an assigned task. The envelope is validated before anything
// is written, and task + outbox row commit together, so a rejected event
// leaves no task behind.
func (s *taskService) Create(ctx context.Context, caller *domain.User, name, jiraID string) (*domain.Task, error) {
	if err := domain.ValidateTaskInput(name, jiraID); err != nil {
		return nil, err
	}

	assignee, err := s.assigner.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := domain.NewTask(caller.PublicID, name, jiraID, now)
	if err := task.Assign(assignee.PublicID, now); err != nil {
		return nil, err
	}

	msg, err := s.outboxMessage(domain.EventTaskCreated, domain.NewTaskCreatedData(task), domain.RoutingTaskStream, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateTask(ctx, task, msg); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	logging.Logger.WithFields(logrus.Fields{
		"task":     task.PublicID,
		"assignee": assignee.PublicID,
		"event_id": msg.EventID,
	}).Info("task created")
	return task, nil
}

// Complete checks assignee identity before state so a stranger always gets
// ErrForbidden, even for a finished task.
func (s *taskService) Complete(ctx context.Context, caller *domain.User, publicID uuid.UUID) (*domain.Task, error) {
	task, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	expected, version := task.Status, task.Version
	now := s.now()
	if err := task.Complete(caller.PublicID, now); err != nil {
		return nil, err
	}
	// The event carries the version the conditional update commits.
	task.Version = version + 1

	msg, err := s.outboxMessage(domain.EventTaskCompleted, domain.NewTaskCompletedData(task), domain.RoutingTaskLifecycle, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTask(ctx, task, expected, version, msg); err != nil {
		return nil, err
	}

	logging.Logger.WithFields(logrus.Fields{
		"task":     task.PublicID,
		"by":       caller.PublicID,
		"event_id": msg.EventID,
	}).Info("task completed")
	return task, nil
}

// Reassign gives every assigned task a fresh random assignee, one commit per
// task. The manager check happens once, before the first write.
func (s *taskService) Reassign(ctx context.Context, caller *domain.User) (int, error) {
	if !caller.CanManageTasks() {
		return 0, fmt.Errorf("%w: %s cannot reassign tasks", domain.ErrForbidden, caller.PublicID)
	}

	tasks, err := s.repo.ListByStatus(ctx, domain.StatusAssigned)
	if err != nil {
		return 0, fmt.Errorf("list assigned tasks: %w", err)
	}

	reassigned := 0
	for i := range tasks {
		task := &tasks[i]
		ok, err := s.reassignOne(ctx, task)
		if err != nil {
			return reassigned, &ReassignError{Reassigned: reassigned, Err: err}
		}
		if ok {
			reassigned++
		}
	}

	logging.Logger.WithFields(logrus.Fields{
		"by":         caller.PublicID,
		"candidates": len(tasks),
		"reassigned": reassigned,
	}).Info("tasks reassigned")
	return reassigned, nil
}

// reassignOne returns false when the task left the assigned state after it
// was listed; that task is skipped, not an error.
func (s *taskService) reassignOne(ctx context.Context, task *domain.Task) (bool, error) {
	assignee, err := s.assigner.Resolve(ctx)
	if err != nil {
		return false, err
	}

	expected, version := task.Status, task.Version
	now := s.now()
	if err := task.Assign(assignee.PublicID, now); err != nil {
		return false, err
	}
	task.Version = version + 1

	msg, err := s.outboxMessage(domain.EventTaskAssigned, domain.NewTaskAssignedData(task), domain.RoutingTaskLifecycle, now)
	if err != nil {
		return false, err
	}
	err = s.repo.UpdateTask(ctx, task, expected, version, msg)
	if errors.Is(err, domain.ErrInvalidState) {
		logging.Logger.WithField("task", task.PublicID).Info("task changed during reassign, skipping")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *taskService) List(ctx context.Context, caller *domain.User) ([]domain.Task, error) {
	if caller.CanManageTasks() {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListByAssignee(ctx, caller.PublicID)
}

func (s *taskService) outboxMessage(name domain.EventName, data any, routingKey string, now time.Time) (*domain.OutboxMessage, error) {
	env, err := s.codec.Build(name, data)
	if err != nil {
		return nil, err
	}
	return publisher.NewOutboxMessage(env, routingKey, now)
}
