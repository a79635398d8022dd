package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	"github.com/ragayama123/EVM-PM-Tool/pkg/response"
)

// MemberHandler 成员模块 HTTP 处理器
type MemberHandler struct {
	memberSvc service.MemberService
}

// NewMemberHandler 创建 MemberHandler
func NewMemberHandler(memberSvc service.MemberService) *MemberHandler {
	return &MemberHandler{memberSvc: memberSvc}
}

// ListMembers 获取项目成员（含负载）
// GET /api/v1/projects/:id/members
func (h *MemberHandler) ListMembers(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	members, err := h.memberSvc.List(c.Request.Context(), projectID)
	if err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.OK(c, gin.H{"list": members})
}

// CreateMember 添加成员
// POST /api/v1/projects/:id/members
func (h *MemberHandler) CreateMember(c *gin.Context) {
	projectID, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	member, err := h.memberSvc.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.Created(c, member)
}

// UpdateMember 更新成员
// PUT /api/v1/members/:id
func (h *MemberHandler) UpdateMember(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	member, err := h.memberSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.OK(c, member)
}

// DeleteMember 删除成员，其负责的任务变为未分配
// DELETE /api/v1/members/:id
func (h *MemberHandler) DeleteMember(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	if err := h.memberSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleMemberError 统一处理成员模块业务错误
func (h *MemberHandler) handleMemberError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSkill):
		response.BadRequest(c, 13002, "未知的技能类型")
	default:
		handleServiceError(c, err)
	}
}
