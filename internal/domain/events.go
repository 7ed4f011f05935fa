package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventName string

const (
	EventTaskCreated   EventName = "Task.Created"
	EventTaskAssigned  EventName = "Task.Assigned"
	EventTaskCompleted EventName = "Task.Completed"
)

// Routing keys double as Redis stream names.
const (
	RoutingTaskStream    = "task_stream"
	RoutingTaskLifecycle = "task_lifecycle"
)

// Every payload carries the task's optimistic-lock version at the moment the
// event was written. Consumers order observations of one task by it.

// TaskCreatedData is the Task.Created v3 payload, the full task representation.
type TaskCreatedData struct {
	PublicID  uuid.UUID  `json:"public_id"`
	Name      string     `json:"name"`
	JiraID    string     `json:"jira_id"`
	Status    TaskStatus `json:"status"`
	Owner     uuid.UUID  `json:"owner"`
	Assignee  *uuid.UUID `json:"assignee"`
	CreatedAt time.Time  `json:"created_at"`
	Version   int        `json:"version"`
}

// TaskAssignedData is the Task.Assigned v3 payload.
type TaskAssignedData struct {
	PublicID uuid.UUID  `json:"public_id"`
	Status   TaskStatus `json:"status"`
	Assignee uuid.UUID  `json:"assignee"`
	Version  int        `json:"version"`
}

// TaskCompletedData is the Task.Completed v3 payload.
type TaskCompletedData struct {
	PublicID    uuid.UUID  `json:"public_id"`
	Status      TaskStatus `json:"status"`
	CompletedBy uuid.UUID  `json:"completed_by"`
	Name        string     `json:"name"`
	JiraID      string     `json:"jira_id"`
	Version     int        `json:"version"`
}

func NewTaskCreatedData(t *Task) TaskCreatedData {
	return TaskCreatedData{
		PublicID:  t.PublicID,
		Name:      t.Name,
		JiraID:    t.JiraID,
		Status:    t.Status,
		Owner:     t.OwnerID,
		Assignee:  t.AssigneeID,
		CreatedAt: t.CreatedAt.UTC(),
		Version:   t.Version,
	}
}

func NewTaskAssignedData(t *Task) TaskAssignedData {
	data := TaskAssignedData{PublicID: t.PublicID, Status: t.Status, Version: t.Version}
	if t.AssigneeID != nil {
		data.Assignee = *t.AssigneeID
	}
	return data
}

func NewTaskCompletedData(t *Task) TaskCompletedData {
	data := TaskCompletedData{
		PublicID: t.PublicID,
		Status:   t.Status,
		Name:     t.Name,
		JiraID:   t.JiraID,
		Version:  t.Version,
	}
	if t.AssigneeID != nil {
		data.CompletedBy = *t.AssigneeID
	}
	return data
}
