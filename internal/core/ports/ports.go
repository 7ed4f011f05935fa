package ports

import (
	"context"
	"time"

	"task-ledger/internal/domain"

	"github.com/google/uuid"
)

// TaskRepository represents the tracker's task storage. Every mutation is
// committed together with the outbox message describing it.
type TaskRepository interface {
	// Persist a new task and its creation event in one transaction
	CreateTask(ctx context.Context, task *domain.Task, msg *domain.OutboxMessage) error

	FindByPublicID(ctx context.Context, publicID uuid.UUID) (*domain.Task, error)
	ListAll(ctx context.Context) ([]domain.Task, error)
	ListByAssignee(ctx context.Context, assignee uuid.UUID) ([]domain.Task, error)
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)

	// Conditional update: "SET ... WHERE id=? AND status=? AND version=?".
	// Returns domain.ErrInvalidState when another writer got there first.
	UpdateTask(ctx context.Context, task *domain.Task, expected domain.TaskStatus, expectedVersion int, msg *domain.OutboxMessage) error
}

// UserRepository is read-only from the tracker's point of view
type UserRepository interface {
	FindByPublicID(ctx context.Context, publicID uuid.UUID) (*domain.User, error)
	ListAll(ctx context.Context) ([]domain.User, error)
}

// OutboxMarker records the outcome of a publish attempt
type OutboxMarker interface {
	MarkPublished(ctx context.Context, id uint, at time.Time) error
	MarkRetry(ctx context.Context, id uint, errMessage string, next time.Time) error
	MarkDead(ctx context.Context, id uint, errMessage string) error
}

// OutboxRepository feeds the relay
type OutboxRepository interface {
	// Claim up to limit due pending messages, ordered by creation. The marker
	// handed to fn writes inside the claiming transaction.
	ClaimDue(ctx context.Context, now time.Time, limit int, fn func(msgs []domain.OutboxMessage, marker OutboxMarker) error) error
	OutboxMarker
}

// TransactionRepository is the accounting ledger
type TransactionRepository interface {
	// Insert unless (task, event) already exists; created reports which happened
	CreateIfAbsent(ctx context.Context, tx *domain.Transaction) (created bool, err error)
	FindByTask(ctx context.Context, taskPublicID uuid.UUID) ([]domain.Transaction, error)
}

// ProjectionRepository stores the accounting-side copy of tasks
type ProjectionRepository interface {
	// Merge applies fn to the current row (zero value if absent) under a row lock and saves it
	Merge(ctx context.Context, publicID uuid.UUID, fn func(current *domain.AccountingTask)) error
	FindByPublicID(ctx context.Context, publicID uuid.UUID) (*domain.AccountingTask, error)
}

// StreamEntry is one broker message waiting for acknowledgement
type StreamEntry struct {
	Stream  string
	ID      string
	Key     string
	Payload []byte
}

// StreamPublisher appends encoded envelopes to a named stream
type StreamPublisher interface {
	Publish(ctx context.Context, stream, partitionKey string, payload []byte) error
}

// StreamSubscriber reads a consumer group; entries stay pending until acked
type StreamSubscriber interface {
	Read(ctx context.Context) ([]StreamEntry, error)
	Reclaim(ctx context.Context) ([]StreamEntry, error)
	Ack(ctx context.Context, entry StreamEntry) error
}
