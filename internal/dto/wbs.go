package dto

// ── WBS 导入导出 DTO ──

// WBSRowError 行级错误，Row 为 Excel 行号（表头为第 1 行）；文件级错误 Row 为 0
type WBSRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// WBSTaskPreview 解析后的一行任务
type WBSTaskPreview struct {
	Row              int     `json:"row"`
	WBSNumber        string  `json:"wbs_number"`
	ParentWBS        *string `json:"parent_wbs,omitempty"`
	Name             string  `json:"name"`
	TaskType         *string `json:"task_type,omitempty"`
	TaskTypeLabel    string  `json:"task_type_label,omitempty"`
	PlannedHours     float64 `json:"planned_hours"`
	PlannedStartDate *string `json:"planned_start_date,omitempty"`
	PlannedEndDate   *string `json:"planned_end_date,omitempty"`
	AssigneeName     string  `json:"assignee_name,omitempty"`
	AssignedMemberID *int64  `json:"assigned_member_id,omitempty"`
	Description      string  `json:"description,omitempty"`
	IsMilestone      bool    `json:"is_milestone"`
	IsChild          bool    `json:"is_child"`
}

// WBSImportPreviewResponse 导入预览；存在解析错误时 tasks 为空
type WBSImportPreviewResponse struct {
	Valid      bool             `json:"valid"`
	Errors     []WBSRowError    `json:"errors"`
	Tasks      []WBSTaskPreview `json:"tasks"`
	TotalCount int              `json:"total_count"`
}

// WBSImportResponse 导入结果
type WBSImportResponse struct {
	ImportedCount int   `json:"imported_count"`
	DeletedCount  int64 `json:"deleted_count"`
}
