package dto

type CreateTaskRequest struct {
	Name   string `json:"name" binding:"required"`
	JiraID string `json:"jira_id" binding:"required"`
}
