package dto

// ── 非工作日模块 DTO ──

// CreateHolidayRequest 创建非工作日请求
type CreateHolidayRequest struct {
	Date        string `json:"date"         binding:"required,datetime=2006-01-02"`
	Name        string `json:"name"         binding:"required,min=1,max=100"`
	HolidayType string `json:"holiday_type" binding:"omitempty,oneof=weekend national company custom"`
}

// HolidayListRequest 非工作日列表查询参数
type HolidayListRequest struct {
	StartDate   string `form:"start" binding:"omitempty,datetime=2006-01-02"`
	EndDate     string `form:"end"   binding:"omitempty,datetime=2006-01-02"`
	HolidayType string `form:"type"  binding:"omitempty,oneof=weekend national company custom"`
}

// DeleteHolidaysRequest 按类型批量删除；type 为空时删除全部
type DeleteHolidaysRequest struct {
	HolidayType string `form:"type" binding:"omitempty,oneof=weekend national company custom"`
}

// GenerateHolidaysRequest 生成非工作日请求
type GenerateHolidaysRequest struct {
	StartDate               string `json:"start_date"                binding:"required,datetime=2006-01-02"`
	EndDate                 string `json:"end_date"                  binding:"required,datetime=2006-01-02"`
	IncludeWeekends         bool   `json:"include_weekends"`
	IncludeNationalHolidays bool   `json:"include_national_holidays"`
	Overwrite               bool   `json:"overwrite"`
}

// ImportHolidaysRequest JSON 批量导入请求
type ImportHolidaysRequest struct {
	Holidays  []CreateHolidayRequest `json:"holidays"  binding:"required,min=1,max=1000,dive"`
	Overwrite bool                   `json:"overwrite"`
}

// ImportICSRequest iCalendar 导入参数（multipart 表单）；未上传文件时从 url 拉取
// start / end 限定展开范围，缺省为今年起三年
type ImportICSRequest struct {
	URL         string `form:"url"          binding:"omitempty,url"`
	HolidayType string `form:"holiday_type" binding:"omitempty,oneof=weekend national company custom"`
	Overwrite   bool   `form:"overwrite"`
	StartDate   string `form:"start"        binding:"omitempty,datetime=2006-01-02"`
	EndDate     string `form:"end"          binding:"omitempty,datetime=2006-01-02"`
}

// ImportCSVRequest CSV 导入参数（multipart 表单，field="file"）
type ImportCSVRequest struct {
	Overwrite bool `form:"overwrite"`
}

// WorkingDaysRequest 工作日统计查询参数
type WorkingDaysRequest struct {
	StartDate string `form:"start" binding:"required,datetime=2006-01-02"`
	EndDate   string `form:"end"   binding:"required,datetime=2006-01-02"`
}

// ── 响应 ──

// HolidayResponse 非工作日响应
type HolidayResponse struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	HolidayType string `json:"holiday_type"`
	CreatedAt   string `json:"created_at"`
}

// HolidayImportResponse 生成 / 导入结果；holidays 为本次新增与覆盖的记录
// errors 仅 CSV 导入使用，格式为「第 N 行: 原因」
type HolidayImportResponse struct {
	Created  int               `json:"created"`
	Updated  int               `json:"updated"`
	Skipped  int               `json:"skipped"`
	Holidays []HolidayResponse `json:"holidays"`
	Errors   []string          `json:"errors,omitempty"`
}

// WorkingDaysResponse 工作日统计
type WorkingDaysResponse struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	TotalDays    int    `json:"total_days"`
	HolidayCount int    `json:"holiday_count"`
	WorkingDays  int    `json:"working_days"`
}
