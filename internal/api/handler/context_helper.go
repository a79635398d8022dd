package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	pkgerrors "github.com/ragayama123/EVM-PM-Tool/pkg/errors"
	"github.com/ragayama123/EVM-PM-Tool/pkg/response"
)

// 通用错误码
const (
	codeInvalidParam   = 10001
	codeInvalidID      = 10002
	codeValidation     = 10003
	codeIntegrity      = 10006
	codeOptimisticLock = 10007
	codeProjectBusy    = 10008
)

// MustGetID 解析路径参数中的正整数 ID。
// 解析失败时写入 400 响应并返回 false，调用方应直接 return。
func MustGetID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, codeInvalidID, "无效的 "+name)
		return 0, false
	}
	return id, true
}

// bindFailed 参数绑定 / 校验失败
func bindFailed(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, codeInvalidParam, "参数校验失败", err.Error())
}

// handleServiceError 各模块未单独处理的错误按分类映射：
// 不存在 → 404，ValidationError → 400，IntegrityError / 并发冲突 → 409，其余 500
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 11001, "项目不存在")
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 12001, "任务不存在")
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, 13001, "成员不存在")
	case errors.Is(err, service.ErrHolidayNotFound):
		response.NotFound(c, 14001, "非工作日不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, codeOptimisticLock, err.Error())
	case errors.Is(err, service.ErrProjectBusy):
		response.Conflict(c, codeProjectBusy, err.Error())
	case pkgerrors.IsValidation(err):
		response.BadRequest(c, codeValidation, err.Error())
	case pkgerrors.IsIntegrity(err):
		response.Conflict(c, codeIntegrity, err.Error())
	default:
		response.InternalError(c)
	}
}
