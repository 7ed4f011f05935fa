package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is an accounting entry derived from a task event. The pair
// (TaskPublicID, EventName) is unique: redelivered events never add a second
// entry.
type Transaction struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;"`
	PublicID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	TaskPublicID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_transactions_task_event"`
	EventName    EventName  `gorm:"type:varchar(64);not null;uniqueIndex:idx_transactions_task_event"`
	AssigneeID   *uuid.UUID `gorm:"type:uuid;index"`
	Amount       int64      `gorm:"not null"`

	CreatedAt time.Time
}

// AccountingTask is the accounting service's local copy of a tracker task.
type AccountingTask struct {
	PublicID   uuid.UUID  `gorm:"type:uuid;primary_key;"`
	Name       string     `gorm:"type:varchar(255)"`
	JiraID     string     `gorm:"type:varchar(100)"`
	Status     TaskStatus `gorm:"type:varchar(20)"`
	AssigneeID *uuid.UUID `gorm:"type:uuid;index"`
	// Version is the highest tracker task version folded in so far.
	Version int `gorm:"not null;default:0"`

	UpdatedAt time.Time
}

func (AccountingTask) TableName() string { return "accounting_tasks" }

// Merge folds an incoming observation into the projection. Status merges by
// rank and never regresses. Name, jira id and assignee follow the highest
// task version seen; an observation that is not newer only fills fields that
// are still empty. Empty incoming fields never clear existing values.
func (a *AccountingTask) Merge(in AccountingTask) {
	newer := in.Version > a.Version
	if in.Name != "" && (newer || a.Name == "") {
		a.Name = in.Name
	}
	if in.JiraID != "" && (newer || a.JiraID == "") {
		a.JiraID = in.JiraID
	}
	if in.AssigneeID != nil && (newer || a.AssigneeID == nil) {
		a.AssigneeID = in.AssigneeID
	}
	if newer {
		a.Version = in.Version
	}
	a.Status = MergeStatus(a.Status, in.Status)
	if in.UpdatedAt.After(a.UpdatedAt) {
		a.UpdatedAt = in.UpdatedAt
	}
}
