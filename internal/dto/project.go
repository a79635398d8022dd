package dto

// ── 项目模块 DTO ──

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string `json:"name"        binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Status      string `json:"status"      binding:"omitempty,oneof=planning in_progress on_hold completed cancelled"`
}

// UpdateProjectRequest 更新项目基本信息请求
type UpdateProjectRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Version     int     `json:"version"     binding:"required,min=1"`
}

// UpdateProjectStatusRequest 手动设置项目状态请求
type UpdateProjectStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=planning in_progress on_hold completed cancelled"`
}

// ── 响应 ──

// ProjectResponse 项目响应，日期与总工时由任务派生
type ProjectResponse struct {
	ID                int64                `json:"id"`
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	Status            string               `json:"status"`
	StartDate         *string              `json:"start_date"`
	EndDate           *string              `json:"end_date"`
	TotalPlannedHours float64              `json:"total_planned_hours"`
	Summary           *TaskSummaryResponse `json:"summary,omitempty"`
	Version           int                  `json:"version"`
	CreatedAt         string               `json:"created_at"`
	UpdatedAt         string               `json:"updated_at"`
}

// TaskSummaryResponse 项目任务汇总
type TaskSummaryResponse struct {
	TotalTasks        int     `json:"total_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	InProgressTasks   int     `json:"in_progress_tasks"`
	NotStartedTasks   int     `json:"not_started_tasks"`
	TotalPlannedHours float64 `json:"total_planned_hours"`
	TotalActualHours  float64 `json:"total_actual_hours"`
	OverallProgress   float64 `json:"overall_progress"`
}
