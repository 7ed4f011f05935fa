package repository

import (
	"context"
	"time"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) ports.OutboxRepository {
	return &outboxRepository{db: db}
}

// ClaimDue locks due rows with SKIP LOCKED so several relay workers can poll
// the same table without publishing a row twice at the same time. The lock
// is held while fn runs; outcomes are written through the same transaction.
func (r *outboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int, fn func(msgs []domain.OutboxMessage, marker ports.OutboxMarker) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msgs []domain.OutboxMessage
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", domain.OutboxPending, now).
			Order("id ASC").
			Limit(limit).
			Find(&msgs).Error
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}
		return fn(msgs, &outboxRepository{db: tx})
	})
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.OutboxPublished,
			"published_at": at,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uint, errMessage string, next time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      errMessage,
			"next_attempt_at": next,
		}).Error
}

func (r *outboxRepository) MarkDead(ctx context.Context, id uint, errMessage string) error {
	return r.db.WithContext(ctx).
		Model(&domain.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.OutboxDead,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": errMessage,
		}).Error
}
