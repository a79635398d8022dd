package dto

// ── 重排 / 自动排程 DTO ──

// RescheduleRequest 级联平移请求；shift_days 为带符号工作日数
type RescheduleRequest struct {
	ShiftDays *int `json:"shift_days" binding:"required"`
}

// AutoScheduleRequest 自动排程请求
// preserve_order 为 true 时按 task_ids 给定顺序排程
type AutoScheduleRequest struct {
	TaskIDs       []int64 `json:"task_ids"       binding:"omitempty,dive,min=1"`
	StartDate     *string `json:"start_date"     binding:"omitempty,datetime=2006-01-02"`
	PreserveOrder bool    `json:"preserve_order"`
}

// ── 响应 ──

// DateChangeResponse 重排预览中的单个任务
type DateChangeResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	ParentID     *int64  `json:"parent_id"`
	IsChild      bool    `json:"is_child"`
	CurrentStart *string `json:"current_start"`
	CurrentEnd   *string `json:"current_end"`
	NewStart     *string `json:"new_start"`
	NewEnd       *string `json:"new_end"`
}

// ReschedulePreviewResponse 重排预览结果
type ReschedulePreviewResponse struct {
	PivotTaskID   int64                `json:"pivot_task_id"`
	PivotTaskName string               `json:"pivot_task_name"`
	ShiftDays     int                  `json:"shift_days"`
	AffectedTasks []DateChangeResponse `json:"affected_tasks"`
	TotalCount    int                  `json:"total_count"`
}

// AssignmentResponse 自动排程预览中的单个阶段
type AssignmentResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	TaskType        string  `json:"task_type"`
	PlannedHours    float64 `json:"planned_hours"`
	CalculatedDays  int     `json:"calculated_days"`
	CurrentMemberID *int64  `json:"current_member_id"`
	NewMemberID     *int64  `json:"new_member_id"`
	NewMemberName   *string `json:"new_member_name"`
	NewStart        string  `json:"new_start"`
	NewEnd          string  `json:"new_end"`
	ChildIDs        []int64 `json:"child_ids"`
}

// AutoSchedulePreviewResponse 自动排程预览结果
type AutoSchedulePreviewResponse struct {
	StartDate  *string              `json:"start_date"`
	Tasks      []AssignmentResponse `json:"tasks"`
	Warnings   []WarningResponse    `json:"warnings"`
	TotalCount int                  `json:"total_count"`
}

// ExecuteResponse 执行类操作结果（重排 / 自动排程共用）
type ExecuteResponse struct {
	UpdatedTasks []TaskResponse    `json:"updated_tasks"`
	UpdatedCount int               `json:"updated_count"`
	Warnings     []WarningResponse `json:"warnings,omitempty"`
}
