package dto

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 通用响应 ──

// WarningResponse 计算警告（随结果返回，不影响执行）
type WarningResponse struct {
	Code    string `json:"code"`
	TaskID  int64  `json:"task_id"`
	Message string `json:"message"`
}

// DeleteResponse 批量删除结果
type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}
