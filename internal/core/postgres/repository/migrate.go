package repository

import (
	"task-ledger/internal/domain"

	"gorm.io/gorm"
)

// MigrateTracker creates the tracker service tables.
func MigrateTracker(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Task{}, &domain.OutboxMessage{})
}

// MigrateAccounting creates the accounting service tables.
func MigrateAccounting(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Transaction{}, &domain.AccountingTask{})
}
