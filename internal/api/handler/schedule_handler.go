package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	"github.com/ragayama123/EVM-PM-Tool/pkg/response"
)

// ScheduleHandler 级联重排 / 自动排程 HTTP 处理器
//
// preview 只计算不写入；对应的 execute 在项目锁内重新计算并整体写入。
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// PreviewReschedule 预览级联重排
// POST /api/v1/tasks/:id/reschedule/preview
func (h *ScheduleHandler) PreviewReschedule(c *gin.Context) {
	pivotID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	preview, err := h.scheduleSvc.PreviewReschedule(c.Request.Context(), pivotID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, preview)
}

// ExecuteReschedule 执行级联重排
// POST /api/v1/tasks/:id/reschedule
func (h *ScheduleHandler) ExecuteReschedule(c *gin.Context) {
	pivotID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.scheduleSvc.ExecuteReschedule(c.Request.Context(), pivotID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// PreviewAutoSchedule 预览自动排程
// POST /api/v1/projects/:id/tasks/auto-schedule/preview
func (h *ScheduleHandler) PreviewAutoSchedule(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.AutoScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	preview, err := h.scheduleSvc.PreviewAutoSchedule(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, preview)
}

// ExecuteAutoSchedule 执行自动排程
// POST /api/v1/projects/:id/tasks/auto-schedule
func (h *ScheduleHandler) ExecuteAutoSchedule(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.AutoScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.scheduleSvc.ExecuteAutoSchedule(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
