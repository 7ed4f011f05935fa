package handler

import (
	"errors"
	"net/http"
	"strings"

	"task-ledger/internal/api/dto"
	"task-ledger/internal/api/middleware"
	"task-ledger/internal/domain"
	"task-ledger/internal/logging"
	"task-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	service service.TaskService
}

func NewTaskHandler(svc service.TaskService) *TaskHandler {
	return &TaskHandler{service: svc}
}

// Register mounts the task routes on an /api group that already runs the
// caller middleware.
func (h *TaskHandler) Register(api *gin.RouterGroup) {
	api.GET("/tasks", h.ListTasks)
	api.POST("/task/create", h.CreateTask)
	api.POST("/task/:id/complete", h.CompleteTask)
	api.POST("/tasks/reassign", h.ReassignTasks)
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.service.List(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskList(tasks))
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		// A bad name outranks a missing jira_id.
		if strings.TrimSpace(req.Name) != "" {
			if nameErr := domain.ValidateTaskName(req.Name); nameErr != nil {
				respondError(c, nameErr)
				return
			}
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	task, err := h.service.Create(c.Request.Context(), middleware.CallerFrom(c), req.Name, req.JiraID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *TaskHandler) CompleteTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, domain.ErrTaskNotFound)
		return
	}

	task, err := h.service.Complete(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *TaskHandler) ReassignTasks(c *gin.Context) {
	_, err := h.service.Reassign(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		var partial *service.ReassignError
		if errors.As(err, &partial) {
			c.JSON(statusFor(partial.Err), gin.H{"error": err.Error(), "reassigned": partial.Reassigned})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrSchemaViolation), errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrInvalidState):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNoEligibleAssignee):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, dto.ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}
