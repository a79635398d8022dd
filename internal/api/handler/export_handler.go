package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	"github.com/ragayama123/EVM-PM-Tool/pkg/response"
)

// ExportHandler 报告导出 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportReport 导出 EVM / WBS 报告
// GET /api/v1/projects/:id/evm/export?format=markdown|json|yaml|xlsx&as_of=
func (h *ExportHandler) ExportReport(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportReport(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	contentType := service.ExportContentType(req.Format)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat):
		response.BadRequest(c, 15101, "不支持的导出格式")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handleServiceError(c, err)
	}
}
