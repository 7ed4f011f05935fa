// Package ledger applies task events to the accounting side: transactions
// and the local task projection. Both writers tolerate redelivery.
package ledger

import (
	"context"
	"fmt"
	"time"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"
	"task-ledger/internal/logging"
	"task-ledger/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Writer creates accounting transactions. The idempotency key is the task
// public id plus the event name, never the event id, which differs for every
// published copy of the same change.
type Writer struct {
	repo ports.TransactionRepository
	fee  int64
	now  func() time.Time
}

func NewWriter(repo ports.TransactionRepository, assignmentFee int64) *Writer {
	return &Writer{
		repo: repo,
		fee:  assignmentFee,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateAssignedTaskTransaction records the assignment charge for a newly
// created task. A repeat for the same task yields domain.ErrDuplicateTransaction.
func (w *Writer) CreateAssignedTaskTransaction(ctx context.Context, data domain.TaskCreatedData) (*domain.Transaction, error) {
	if data.PublicID == uuid.Nil {
		return nil, fmt.Errorf("%w: task public_id is required", domain.ErrInvalidInput)
	}

	tx := &domain.Transaction{
		ID:           uuid.New(),
		PublicID:     uuid.New(),
		TaskPublicID: data.PublicID,
		EventName:    domain.EventTaskCreated,
		AssigneeID:   data.Assignee,
		Amount:       w.fee,
		CreatedAt:    w.now(),
	}

	created, err := w.repo.CreateIfAbsent(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("write transaction for task %s: %w", data.PublicID, err)
	}
	if !created {
		metrics.DuplicateTransactions.Inc()
		return nil, fmt.Errorf("%w: task %s", domain.ErrDuplicateTransaction, data.PublicID)
	}

	metrics.TransactionsCreated.Inc()
	logging.Logger.WithFields(logrus.Fields{
		"transaction": tx.PublicID,
		"task":        tx.TaskPublicID,
		"amount":      tx.Amount,
	}).Info("transaction created")
	return tx, nil
}
