package engine

import (
	"math"
	"sort"
	"time"
)

// Status 进度 / 成本健康状态
type Status string

const (
	StatusOnTrack  Status = "on_track"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

const (
	healthyThreshold = 1.0
	warningThreshold = 0.9
)

// Metrics EVM 指标（工时口径）
type Metrics struct {
	AsOf time.Time
	PV   float64
	EV   float64
	AC   float64
	SV   float64
	CV   float64
	SPI  float64
	CPI  float64
	BAC  float64
	ETC  float64
	EAC  float64
}

// Rounded 返回展示 / 快照用的四舍五入副本：工时 2 位小数，指数 3 位小数
func (m Metrics) Rounded() Metrics {
	return Metrics{
		AsOf: m.AsOf,
		PV:   round(m.PV, 2),
		EV:   round(m.EV, 2),
		AC:   round(m.AC, 2),
		SV:   round(m.SV, 2),
		CV:   round(m.CV, 2),
		SPI:  round(m.SPI, 3),
		CPI:  round(m.CPI, 3),
		BAC:  round(m.BAC, 2),
		ETC:  round(m.ETC, 2),
		EAC:  round(m.EAC, 2),
	}
}

// Recommendation 改进建议，Code 为稳定的触发条件标识
type Recommendation struct {
	Code    string
	Message string
}

const (
	RecScheduleRecovery = "schedule_recovery"
	RecCostReview       = "cost_review"
	RecPlanReview       = "plan_review"
	RecKeepCourse       = "keep_course"
)

// Analysis 指标 + 状态 + 建议
type Analysis struct {
	Metrics         Metrics
	ScheduleStatus  Status
	CostStatus      Status
	Recommendations []Recommendation
}

// ════════════════════════════════════════════════════════════
// Calculate EVM 指标计算
// ════════════════════════════════════════════════════════════

// Calculate 基于全部任务计算 asOf 当日的 EVM 指标
//
// PV 的经过比例按工作日计：CountWorkingDays(start, min(asOf, end)) / CountWorkingDays(start, end)。
func Calculate(tasks []Task, asOf time.Time, h HolidaySet) Metrics {
	asOf = DateOf(asOf)
	m := Metrics{AsOf: asOf}

	for i := range tasks {
		t := &tasks[i]
		planned := nonNegative(t.PlannedHours)
		m.BAC += planned
		m.PV += planned * elapsedFraction(t, asOf, h)
		m.EV += planned * float64(clampProgress(t.Progress)) / 100
		m.AC += nonNegative(t.ActualHours)
	}

	m.SV = m.EV - m.PV
	m.CV = m.EV - m.AC

	m.SPI = 1.0
	if m.PV != 0 {
		m.SPI = m.EV / m.PV
	}
	m.CPI = 1.0
	if m.AC != 0 {
		m.CPI = m.EV / m.AC
	}

	if m.CPI == 0 {
		m.ETC = m.BAC - m.EV
	} else {
		m.ETC = (m.BAC - m.EV) / m.CPI
	}
	m.EAC = m.AC + m.ETC
	return m
}

// elapsedFraction 计划工期在 asOf 时已经过的比例，限定在 [0, 1]
func elapsedFraction(t *Task, asOf time.Time, h HolidaySet) float64 {
	if t.PlannedStart == nil || t.PlannedEnd == nil {
		return 0
	}
	start, end := DateOf(*t.PlannedStart), DateOf(*t.PlannedEnd)
	if asOf.Before(start) {
		return 0
	}
	if !asOf.Before(end) {
		return 1
	}
	total := CountWorkingDays(start, end, h)
	if total == 0 {
		return 0
	}
	elapsed := CountWorkingDays(start, minDate(asOf, end), h)
	return math.Min(float64(elapsed)/float64(total), 1)
}

// Analyze 由指标推导状态与建议
func Analyze(m Metrics) Analysis {
	return Analysis{
		Metrics:         m,
		ScheduleStatus:  statusOf(m.SPI),
		CostStatus:      statusOf(m.CPI),
		Recommendations: recommend(m),
	}
}

func statusOf(index float64) Status {
	switch {
	case index >= healthyThreshold:
		return StatusOnTrack
	case index >= warningThreshold:
		return StatusWarning
	default:
		return StatusCritical
	}
}

func recommend(m Metrics) []Recommendation {
	var recs []Recommendation
	if m.SPI < warningThreshold {
		recs = append(recs, Recommendation{
			Code:    RecScheduleRecovery,
			Message: "进度明显落后，建议追加资源或重新评估范围",
		})
	}
	if m.CPI < warningThreshold {
		recs = append(recs, Recommendation{
			Code:    RecCostReview,
			Message: "成本效率偏低，建议排查工时超支原因并复核成本",
		})
	}
	if m.SPI < healthyThreshold && m.CPI < healthyThreshold {
		recs = append(recs, Recommendation{
			Code:    RecPlanReview,
			Message: "进度与成本同时落后，建议整体复核项目计划",
		})
	}
	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Code:    RecKeepCourse,
			Message: "项目状态良好，保持当前节奏",
		})
	}
	return recs
}

// ── 成员维度 EVM ──

// MemberMetrics 单个成员所负责任务的 EVM 指标与负载
type MemberMetrics struct {
	MemberID      int64
	MemberName    string
	TaskCount     int
	AssignedHours float64
	Utilization   float64 // 已分配计划工时 / 周可用工时 × 100
	Metrics       Metrics
}

// CalculateByMember 按负责人拆分任务后分别计算指标，结果按成员 id 升序
func CalculateByMember(tasks []Task, members []Member, asOf time.Time, h HolidaySet) []MemberMetrics {
	byMember := make(map[int64][]Task)
	for _, t := range tasks {
		if t.AssignedMemberID != nil {
			byMember[*t.AssignedMemberID] = append(byMember[*t.AssignedMemberID], t)
		}
	}

	out := make([]MemberMetrics, 0, len(members))
	for _, mem := range members {
		own := byMember[mem.ID]
		mm := MemberMetrics{
			MemberID:   mem.ID,
			MemberName: mem.Name,
			TaskCount:  len(own),
			Metrics:    Calculate(own, asOf, h),
		}
		mm.AssignedHours = mm.Metrics.BAC
		mm.Utilization = Utilization(mm.AssignedHours, mem.AvailableHoursPerWeek)
		out = append(out, mm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

// Utilization 负载率（百分比，1 位小数），周可用工时非正时返回 0
func Utilization(assignedHours, hoursPerWeek float64) float64 {
	if hoursPerWeek <= 0 {
		return 0
	}
	return round(assignedHours/hoursPerWeek*100, 1)
}

// ── 任务状态汇总 ──

// TaskStatus 单个任务的执行状态
type TaskStatus string

const (
	TaskCompleted  TaskStatus = "completed"
	TaskInProgress TaskStatus = "in_progress"
	TaskStarted    TaskStatus = "started"
	TaskNotStarted TaskStatus = "not_started"
)

// StatusOfTask 进度 100 为完成，有进度为进行中，仅有实际开始日为已开始
func StatusOfTask(t *Task) TaskStatus {
	switch {
	case t.Progress >= 100:
		return TaskCompleted
	case t.Progress > 0:
		return TaskInProgress
	case t.ActualStart != nil:
		return TaskStarted
	default:
		return TaskNotStarted
	}
}

// Summary 项目任务汇总
type Summary struct {
	TotalTasks        int
	CompletedTasks    int
	InProgressTasks   int
	NotStartedTasks   int
	TotalPlannedHours float64
	TotalActualHours  float64
	OverallProgress   float64 // EV / BAC × 100
}

// Summarize 统计任务数与工时，started 计入进行中
func Summarize(tasks []Task) Summary {
	var s Summary
	var ev float64
	for i := range tasks {
		t := &tasks[i]
		s.TotalTasks++
		switch StatusOfTask(t) {
		case TaskCompleted:
			s.CompletedTasks++
		case TaskInProgress, TaskStarted:
			s.InProgressTasks++
		default:
			s.NotStartedTasks++
		}
		planned := nonNegative(t.PlannedHours)
		s.TotalPlannedHours += planned
		s.TotalActualHours += nonNegative(t.ActualHours)
		ev += planned * float64(clampProgress(t.Progress)) / 100
	}
	if s.TotalPlannedHours > 0 {
		s.OverallProgress = round(ev/s.TotalPlannedHours*100, 1)
	}
	return s
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
