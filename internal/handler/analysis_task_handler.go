package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/staypoint-backend-go/internal/middleware"
	"github.com/jengzang/staypoint-backend-go/internal/service"
	"github.com/jengzang/staypoint-backend-go/pkg/response"
)

// AnalysisTaskHandler handles HTTP requests for analysis tasks
type AnalysisTaskHandler struct {
	service *service.AnalysisTaskService
}

// NewAnalysisTaskHandler creates a new analysis task handler
func NewAnalysisTaskHandler(service *service.AnalysisTaskService) *AnalysisTaskHandler {
	return &AnalysisTaskHandler{service: service}
}

// CreateTaskRequest represents the request body for creating an analysis task
type CreateTaskRequest struct {
	SkillName string                 `json:"skill_name" binding:"required"`
	TaskType  string                 `json:"task_type"` // INCREMENTAL or FULL_RECOMPUTE, default FULL_RECOMPUTE
	Params    map[string]interface{} `json:"params"`
}

// CreateTask creates a new analysis task
// POST /api/v1/admin/analysis/tasks
func (h *AnalysisTaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	// Get user from context (set by auth middleware)
	createdBy := c.GetString(middleware.UserKey)

	task, err := h.service.CreateTask(c.Request.Context(), req.SkillName, req.TaskType, req.Params, createdBy)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, task)
}

// GetTask retrieves a task by ID
// GET /api/v1/admin/analysis/tasks/:id
func (h *AnalysisTaskHandler) GetTask(c *gin.Context) {
	id, ok := paramID(c, "task")
	if !ok {
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, task)
}

// ListTasks retrieves all tasks
// GET /api/v1/admin/analysis/tasks
func (h *AnalysisTaskHandler) ListTasks(c *gin.Context) {
	skillName := c.Query("skill_name")
	status := c.Query("status")
	limitStr := c.DefaultQuery("limit", "20")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		limit = 20
	}

	offset, err := strconv.Atoi(offsetStr)
	if err != nil {
		offset = 0
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), skillName, status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"tasks":  tasks,
		"limit":  limit,
		"offset": offset,
	})
}

// CancelTask cancels a running task, or with purge=true deletes a finished one
// DELETE /api/v1/admin/analysis/tasks/:id
func (h *AnalysisTaskHandler) CancelTask(c *gin.Context) {
	id, ok := paramID(c, "task")
	if !ok {
		return
	}

	purge := false
	if v := c.Query("purge"); v != "" {
		var err error
		if purge, err = strconv.ParseBool(v); err != nil {
			response.BadRequest(c, "Invalid purge parameter")
			return
		}
	}

	if purge {
		if err := h.service.DeleteTask(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, gin.H{"message": "Task deleted successfully"})
		return
	}

	if err := h.service.CancelTask(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Task cancelled successfully"})
}
