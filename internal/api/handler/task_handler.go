package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	"github.com/ragayama123/EVM-PM-Tool/pkg/response"
)

// TaskHandler 任务（WBS）模块 HTTP 处理器
type TaskHandler struct {
	taskSvc service.TaskService
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc}
}

// ListTasks 获取项目任务列表
// GET /api/v1/projects/:id/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	tasks, err := h.taskSvc.List(c.Request.Context(), projectID)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tasks})
}

// GetTask 获取任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, task)
}

// CreateTask 创建任务
// POST /api/v1/projects/:id/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	task, err := h.taskSvc.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.Created(c, task)
}

// UpdateTask 更新任务（整体替换，需携带 version）
// PUT /api/v1/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	task, err := h.taskSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, task)
}

// DeleteTask 删除任务，阶段下的子任务一并删除
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	if err := h.taskSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleTaskError 统一处理任务模块业务错误
func (h *TaskHandler) handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotInProject):
		response.Conflict(c, 12002, "负责人不属于该项目")
	case errors.Is(err, service.ErrTaskNotInProject):
		response.Conflict(c, 12003, "父任务或前置任务不属于该项目")
	default:
		handleServiceError(c, err)
	}
}
