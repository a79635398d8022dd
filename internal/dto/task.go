package dto

// ── 任务模块 DTO ──

// CreateTaskRequest 创建任务请求；日期格式 YYYY-MM-DD
type CreateTaskRequest struct {
	ParentID         *int64  `json:"parent_id"          binding:"omitempty,min=1"`
	PredecessorID    *int64  `json:"predecessor_id"     binding:"omitempty,min=1"`
	AssignedMemberID *int64  `json:"assigned_member_id" binding:"omitempty,min=1"`
	Name             string  `json:"name"               binding:"required,min=1,max=200"`
	Description      string  `json:"description"        binding:"max=2000"`
	TaskType         *string `json:"task_type"`
	PlannedHours     float64 `json:"planned_hours"      binding:"min=0"`
	ActualHours      float64 `json:"actual_hours"       binding:"min=0"`
	Progress         int     `json:"progress"           binding:"min=0,max=100"`
	IsMilestone      bool    `json:"is_milestone"`
	PlannedStartDate *string `json:"planned_start_date" binding:"omitempty,datetime=2006-01-02"`
	PlannedEndDate   *string `json:"planned_end_date"   binding:"omitempty,datetime=2006-01-02"`
	ActualStartDate  *string `json:"actual_start_date"  binding:"omitempty,datetime=2006-01-02"`
	ActualEndDate    *string `json:"actual_end_date"    binding:"omitempty,datetime=2006-01-02"`
}

// UpdateTaskRequest 更新任务请求（整体替换，需携带当前版本号）
type UpdateTaskRequest struct {
	CreateTaskRequest
	Version int `json:"version" binding:"required,min=1"`
}

// ── 响应 ──

// TaskResponse 任务响应
type TaskResponse struct {
	ID                 int64   `json:"id"`
	ProjectID          int64   `json:"project_id"`
	ParentID           *int64  `json:"parent_id"`
	PredecessorID      *int64  `json:"predecessor_id"`
	AssignedMemberID   *int64  `json:"assigned_member_id"`
	AssignedMemberName *string `json:"assigned_member_name,omitempty"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	TaskType           *string `json:"task_type"`
	TaskTypeLabel      string  `json:"task_type_label,omitempty"`
	PlannedHours       float64 `json:"planned_hours"`
	ActualHours        float64 `json:"actual_hours"`
	Progress           int     `json:"progress"`
	IsMilestone        bool    `json:"is_milestone"`
	PlannedStartDate   *string `json:"planned_start_date"`
	PlannedEndDate     *string `json:"planned_end_date"`
	ActualStartDate    *string `json:"actual_start_date"`
	ActualEndDate      *string `json:"actual_end_date"`
	Status             string  `json:"status"` // completed | in_progress | started | not_started
	Version            int     `json:"version"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}
