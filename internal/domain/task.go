package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusCreated   TaskStatus = "created"
	StatusAssigned  TaskStatus = "assigned"
	StatusCompleted TaskStatus = "completed"
)

// rank orders statuses along the lifecycle; a transition may only move forward.
func (s TaskStatus) rank() int {
	switch s {
	case StatusCreated:
		return 1
	case StatusAssigned:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// MergeStatus returns whichever of the two statuses is further along the
// lifecycle. Used by projections that may observe events out of order.
func MergeStatus(current, incoming TaskStatus) TaskStatus {
	if incoming.rank() > current.rank() {
		return incoming
	}
	return current
}

type Task struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;"`
	PublicID   uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	Name       string     `gorm:"type:varchar(255);not null"`
	JiraID     string     `gorm:"type:varchar(100);not null"`
	OwnerID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	AssigneeID *uuid.UUID `gorm:"type:uuid;index"`
	Status     TaskStatus `gorm:"type:varchar(20);index;default:'created'"`
	Version    int        `gorm:"default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTask(owner uuid.UUID, name, jiraID string, now time.Time) *Task {
	return &Task{
		ID:        uuid.New(),
		PublicID:  uuid.New(),
		Name:      name,
		JiraID:    jiraID,
		OwnerID:   owner,
		Status:    StatusCreated,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateTaskName rejects empty names and names carrying '[' or ']'.
func ValidateTaskName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.ContainsAny(name, "[]") {
		return fmt.Errorf("%w: name must not contain '[' or ']'", ErrInvalidInput)
	}
	return nil
}

// ValidateTaskInput checks the name first, then the jira id.
func ValidateTaskInput(name, jiraID string) error {
	if err := ValidateTaskName(name); err != nil {
		return err
	}
	if strings.TrimSpace(jiraID) == "" {
		return fmt.Errorf("%w: jira_id is required", ErrInvalidInput)
	}
	return nil
}

// Assign hands the task to a user. Allowed from created (initial assignment)
// and assigned (reassignment).
func (t *Task) Assign(assignee uuid.UUID, now time.Time) error {
	if t.Status != StatusCreated && t.Status != StatusAssigned {
		return fmt.Errorf("%w: cannot assign task in status %s", ErrInvalidState, t.Status)
	}
	t.AssigneeID = &assignee
	t.Status = StatusAssigned
	t.UpdatedAt = now
	return nil
}

func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

func (t *Task) MightBeMarkedAsCompleted() bool {
	return t.Status == StatusAssigned
}

// Complete checks caller authorization first, then the lifecycle state.
func (t *Task) Complete(caller uuid.UUID, now time.Time) error {
	if !t.IsAssignedTo(caller) {
		return fmt.Errorf("%w: only the assignee may complete task %s", ErrForbidden, t.PublicID)
	}
	if !t.MightBeMarkedAsCompleted() {
		return fmt.Errorf("%w: task %s is %s", ErrInvalidState, t.PublicID, t.Status)
	}
	t.Status = StatusCompleted
	t.UpdatedAt = now
	return nil
}
