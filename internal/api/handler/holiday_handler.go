package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	"github.com/ragayama123/EVM-PM-Tool/pkg/response"
)

// HolidayHandler 非工作日（工作日历）模块 HTTP 处理器
type HolidayHandler struct {
	holidaySvc service.HolidayService
}

// NewHolidayHandler 创建 HolidayHandler
func NewHolidayHandler(holidaySvc service.HolidayService) *HolidayHandler {
	return &HolidayHandler{holidaySvc: holidaySvc}
}

// ListHolidays 获取非工作日列表
// GET /api/v1/projects/:id/holidays?start=&end=&type=
func (h *HolidayHandler) ListHolidays(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.HolidayListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	holidays, err := h.holidaySvc.List(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.OK(c, gin.H{"list": holidays})
}

// ListHolidayDates 获取非工作日日期（升序）
// GET /api/v1/projects/:id/holidays/dates
func (h *HolidayHandler) ListHolidayDates(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	dates, err := h.holidaySvc.Dates(c.Request.Context(), projectID)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.OK(c, gin.H{"dates": dates})
}

// CreateHoliday 添加非工作日
// POST /api/v1/projects/:id/holidays
func (h *HolidayHandler) CreateHoliday(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	holiday, err := h.holidaySvc.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.Created(c, holiday)
}

// DeleteHoliday 删除单个非工作日
// DELETE /api/v1/holidays/:id
func (h *HolidayHandler) DeleteHoliday(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	if err := h.holidaySvc.Delete(c.Request.Context(), id); err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.OK(c, nil)
}

// DeleteHolidays 按类型批量删除，type 为空时删除全部
// DELETE /api/v1/projects/:id/holidays?type=
func (h *HolidayHandler) DeleteHolidays(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.DeleteHolidaysRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	deleted, err := h.holidaySvc.DeleteByType(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.OK(c, dto.DeleteResponse{Deleted: deleted})
}

// GenerateHolidays 生成周末 / 法定节假日
// POST /api/v1/projects/:id/holidays/generate
func (h *HolidayHandler) GenerateHolidays(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.GenerateHolidaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.holidaySvc.Generate(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.Created(c, result)
}

// ImportHolidays JSON 批量导入
// POST /api/v1/projects/:id/holidays/import
func (h *HolidayHandler) ImportHolidays(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.ImportHolidaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.holidaySvc.Import(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.Created(c, result)
}

// ImportICS 导入 iCalendar 非工作日
// POST /api/v1/projects/:id/holidays/import-ics
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - URL 导入: 表单字段 url
func (h *HolidayHandler) ImportICS(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.ImportICSRequest
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}

	var src io.Reader
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		src = file
	}

	result, err := h.holidaySvc.ImportICS(c.Request.Context(), projectID, &req, src)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.Created(c, result)
}

// ImportCSV 上传 CSV 导入非工作日
// POST /api/v1/projects/:id/holidays/import-csv  (multipart: file, overwrite)
func (h *HolidayHandler) ImportCSV(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.ImportCSVRequest
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 14012, "请上传 CSV 文件")
		return
	}
	defer file.Close()

	result, err := h.holidaySvc.ImportCSV(c.Request.Context(), projectID, &req, file)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.Created(c, result)
}

// WorkingDays 统计区间内的工作日
// GET /api/v1/projects/:id/working-days?start=&end=
func (h *HolidayHandler) WorkingDays(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.WorkingDaysRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.holidaySvc.WorkingDays(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.OK(c, result)
}

// handleHolidayError 统一处理非工作日模块业务错误
func (h *HolidayHandler) handleHolidayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHolidayExists):
		response.Conflict(c, 14002, "该日期已存在非工作日")
	case errors.Is(err, service.ErrInvalidHolidayType):
		response.BadRequest(c, 14003, "未知的非工作日类型")
	case errors.Is(err, service.ErrRangeTooLong):
		response.BadRequest(c, 14004, "日期区间不能超过 3 年")
	case errors.Is(err, service.ErrICSParse):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14006, "iCalendar 文件解析失败", err.Error())
	case errors.Is(err, service.ErrICSNoEvents):
		response.BadRequest(c, 14007, "iCalendar 文件中没有可导入的事件")
	case errors.Is(err, service.ErrICSFetch):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14008, "iCalendar URL 获取失败", err.Error())
	case errors.Is(err, service.ErrICSMissingSource):
		response.BadRequest(c, 14009, "请上传 iCalendar 文件或提供 url")
	case errors.Is(err, service.ErrCSVHeader):
		response.BadRequest(c, 14010, "CSV 表头缺少 date 或 name 列")
	case errors.Is(err, service.ErrCSVNoRows):
		response.BadRequest(c, 14011, "CSV 文件中没有数据行")
	case errors.Is(err, service.ErrCSVParse):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14013, "CSV 文件解析失败", err.Error())
	default:
		handleServiceError(c, err)
	}
}
