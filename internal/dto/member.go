package dto

// ── 成员模块 DTO ──

// CreateMemberRequest 创建成员请求；skills 取值为任务类型编码
type CreateMemberRequest struct {
	Name                  string   `json:"name"                     binding:"required,min=1,max=100"`
	Email                 *string  `json:"email"                    binding:"omitempty,email,max=200"`
	AvailableHoursPerWeek float64  `json:"available_hours_per_week" binding:"required,gt=0,lte=168"`
	Skills                []string `json:"skills"                   binding:"omitempty,dive,oneof=requirements external_design detailed_design pg ut ci it st release"`
}

// UpdateMemberRequest 更新成员请求（整体替换）
type UpdateMemberRequest = CreateMemberRequest

// ── 响应 ──

// MemberResponse 成员响应，含当前负载
type MemberResponse struct {
	ID                    int64    `json:"id"`
	ProjectID             int64    `json:"project_id"`
	Name                  string   `json:"name"`
	Email                 *string  `json:"email"`
	AvailableHoursPerWeek float64  `json:"available_hours_per_week"`
	Skills                []string `json:"skills"`
	TaskCount             int      `json:"task_count"`
	AssignedHours         float64  `json:"assigned_hours"`
	Utilization           float64  `json:"utilization"`
	CreatedAt             string   `json:"created_at"`
	UpdatedAt             string   `json:"updated_at"`
}

// MemberEVMResponse 成员维度 EVM 指标
type MemberEVMResponse struct {
	MemberID      int64              `json:"member_id"`
	MemberName    string             `json:"member_name"`
	TaskCount     int                `json:"task_count"`
	AssignedHours float64            `json:"assigned_hours"`
	Utilization   float64            `json:"utilization"`
	Metrics       EVMMetricsResponse `json:"metrics"`
}
