package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	"github.com/ragayama123/EVM-PM-Tool/pkg/response"
)

// WBSHandler WBS Excel 模板与导入 HTTP 处理器
type WBSHandler struct {
	wbsSvc service.WBSService
}

// NewWBSHandler 创建 WBSHandler
func NewWBSHandler(wbsSvc service.WBSService) *WBSHandler {
	return &WBSHandler{wbsSvc: wbsSvc}
}

// DownloadTemplate 下载 WBS 导入模板
// GET /api/v1/projects/:id/wbs/template
func (h *WBSHandler) DownloadTemplate(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	buf, filename, err := h.wbsSvc.Template(c.Request.Context(), projectID)
	if err != nil {
		h.handleWBSError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, service.ExportContentType(service.FormatXLSX), buf.Bytes())
}

// PreviewImport 解析 WBS 文件并返回预览，不写库
// POST /api/v1/projects/:id/wbs/import/preview  (multipart: file)
func (h *WBSHandler) PreviewImport(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 16003, "请上传 WBS Excel 文件")
		return
	}
	defer file.Close()

	result, err := h.wbsSvc.Preview(c.Request.Context(), projectID, file)
	if err != nil {
		h.handleWBSError(c, err)
		return
	}

	response.OK(c, result)
}

// ExecuteImport 以 WBS 文件替换项目全部任务
// POST /api/v1/projects/:id/wbs/import  (multipart: file)
func (h *WBSHandler) ExecuteImport(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 16003, "请上传 WBS Excel 文件")
		return
	}
	defer file.Close()

	result, err := h.wbsSvc.Import(c.Request.Context(), projectID, file)
	if err != nil {
		h.handleWBSError(c, err)
		return
	}

	response.Created(c, result)
}

func (h *WBSHandler) handleWBSError(c *gin.Context, err error) {
	var rowsErr *service.WBSRowsError
	switch {
	case errors.As(err, &rowsErr):
		response.ErrorWithData(c, http.StatusBadRequest, 16002, "WBS 文件存在错误", rowsErr.Rows)
	case errors.Is(err, service.ErrWBSFile):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16001, "无法读取 WBS Excel 文件", err.Error())
	default:
		handleServiceError(c, err)
	}
}
