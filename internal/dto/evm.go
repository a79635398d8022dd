package dto

// ── EVM 模块 DTO ──

// EVMQueryRequest 指标查询参数；as_of 缺省为当天
type EVMQueryRequest struct {
	AsOf string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// CreateSnapshotRequest 创建快照请求；as_of 缺省为当天
type CreateSnapshotRequest struct {
	AsOf *string `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// SnapshotListRequest 快照列表查询参数
type SnapshotListRequest struct {
	StartDate string `form:"start" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end"   binding:"omitempty,datetime=2006-01-02"`
	PaginationRequest
}

// ExportRequest 报告导出参数
type ExportRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=markdown json yaml xlsx"`
	AsOf   string `form:"as_of"  binding:"omitempty,datetime=2006-01-02"`
}

// ── 响应 ──

// EVMMetricsResponse EVM 指标（工时口径）
type EVMMetricsResponse struct {
	AsOf string  `json:"as_of"`
	PV   float64 `json:"pv"`
	EV   float64 `json:"ev"`
	AC   float64 `json:"ac"`
	SV   float64 `json:"sv"`
	CV   float64 `json:"cv"`
	SPI  float64 `json:"spi"`
	CPI  float64 `json:"cpi"`
	BAC  float64 `json:"bac"`
	ETC  float64 `json:"etc"`
	EAC  float64 `json:"eac"`
}

// RecommendationResponse 改进建议
type RecommendationResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EVMAnalysisResponse EVM 分析结果
type EVMAnalysisResponse struct {
	Metrics         EVMMetricsResponse       `json:"metrics"`
	ScheduleStatus  string                   `json:"schedule_status"`
	CostStatus      string                   `json:"cost_status"`
	Recommendations []RecommendationResponse `json:"recommendations"`
	Summary         TaskSummaryResponse      `json:"summary"`
}

// SnapshotResponse EVM 快照
type SnapshotResponse struct {
	ID           int64   `json:"id"`
	ProjectID    int64   `json:"project_id"`
	SnapshotDate string  `json:"snapshot_date"`
	PV           float64 `json:"pv"`
	EV           float64 `json:"ev"`
	AC           float64 `json:"ac"`
	SV           float64 `json:"sv"`
	CV           float64 `json:"cv"`
	SPI          float64 `json:"spi"`
	CPI          float64 `json:"cpi"`
	BAC          float64 `json:"bac"`
	ETC          float64 `json:"etc"`
	EAC          float64 `json:"eac"`
	CreatedAt    string  `json:"created_at"`
}
