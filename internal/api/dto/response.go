package dto

import (
	"time"

	"task-ledger/internal/domain"

	"github.com/google/uuid"
)

type TaskResponse struct {
	PublicID  uuid.UUID         `json:"public_id"`
	Name      string            `json:"name"`
	JiraID    string            `json:"jira_id"`
	Status    domain.TaskStatus `json:"status"`
	Owner     uuid.UUID         `json:"owner"`
	Assignee  *uuid.UUID        `json:"assignee"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		PublicID:  t.PublicID,
		Name:      t.Name,
		JiraID:    t.JiraID,
		Status:    t.Status,
		Owner:     t.OwnerID,
		Assignee:  t.AssigneeID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func NewTaskList(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskResponse(&tasks[i]))
	}
	return out
}
