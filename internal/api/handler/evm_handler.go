package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	"github.com/ragayama123/EVM-PM-Tool/pkg/response"
)

// EVMHandler EVM 指标模块 HTTP 处理器
type EVMHandler struct {
	evmSvc service.EVMService
}

// NewEVMHandler 创建 EVMHandler
func NewEVMHandler(evmSvc service.EVMService) *EVMHandler {
	return &EVMHandler{evmSvc: evmSvc}
}

// GetMetrics 获取 EVM 指标
// GET /api/v1/projects/:id/evm/metrics?as_of=
func (h *EVMHandler) GetMetrics(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.EVMQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	metrics, err := h.evmSvc.Metrics(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, metrics)
}

// GetAnalysis 获取 EVM 分析（指标 + 状态 + 建议 + 汇总）
// GET /api/v1/projects/:id/evm/analysis?as_of=
func (h *EVMHandler) GetAnalysis(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.EVMQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	analysis, err := h.evmSvc.Analysis(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, analysis)
}

// CreateSnapshot 记录 EVM 快照，请求体可省略
// POST /api/v1/projects/:id/evm/snapshots
func (h *EVMHandler) CreateSnapshot(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindFailed(c, err)
		return
	}

	snapshot, err := h.evmSvc.CreateSnapshot(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, snapshot)
}

// ListSnapshots 获取快照列表（按日期升序，分页）
// GET /api/v1/projects/:id/evm/snapshots?start=&end=
func (h *EVMHandler) ListSnapshots(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.SnapshotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.evmSvc.ListSnapshots(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetMemberEVM 成员维度 EVM
// GET /api/v1/projects/:id/members/evm?as_of=
func (h *EVMHandler) GetMemberEVM(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.EVMQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	rows, err := h.evmSvc.MemberEVM(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": rows})
}
