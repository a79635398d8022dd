package engine

import "time"

// 偏差解读
const (
	ScheduleAhead  = "ahead"
	ScheduleBehind = "behind"
	CostUnder      = "under_budget"
	CostOver       = "over_budget"
)

// Interpretation SPI / CPI 相对 1.0 的解读，百分比保留 1 位小数
type Interpretation struct {
	Schedule            string
	Cost                string
	ScheduleVariancePct float64
	CostVariancePct     float64
}

// Interpret 指数 ≥ 1.0 视为提前 / 未超支；使用未取整的指数
func Interpret(m Metrics) Interpretation {
	in := Interpretation{
		Schedule:            ScheduleAhead,
		Cost:                CostUnder,
		ScheduleVariancePct: round((m.SPI-1)*100, 1),
		CostVariancePct:     round((m.CPI-1)*100, 1),
	}
	if m.SPI < 1 {
		in.Schedule = ScheduleBehind
	}
	if m.CPI < 1 {
		in.Cost = CostOver
	}
	return in
}

// TaskContribution 单任务挣值贡献与效率（EV / 实际工时），实际工时为 0 时效率为 nil
func TaskContribution(t *Task) (ev float64, efficiency *float64) {
	raw := nonNegative(t.PlannedHours) * float64(clampProgress(t.Progress)) / 100
	if actual := nonNegative(t.ActualHours); actual > 0 {
		e := round(raw/actual, 2)
		efficiency = &e
	}
	return round(raw, 2), efficiency
}

// Period 项目期间相对基准日的日历天数
type Period struct {
	Start         *time.Time
	End           *time.Time
	TotalDays     int
	ElapsedDays   int
	RemainingDays int
	ProgressPct   float64 // ElapsedDays / TotalDays × 100，可为负或超过 100
}

// PeriodOf 起止日期缺失时各天数为 0
func PeriodOf(span ProjectSpan, asOf time.Time) Period {
	p := Period{Start: span.Start, End: span.End}
	if span.Start == nil || span.End == nil {
		return p
	}
	asOf = DateOf(asOf)
	p.TotalDays = daysBetween(*span.Start, *span.End)
	p.ElapsedDays = daysBetween(*span.Start, asOf)
	p.RemainingDays = daysBetween(asOf, *span.End)
	if p.TotalDays > 0 {
		p.ProgressPct = round(float64(p.ElapsedDays)/float64(p.TotalDays)*100, 1)
	}
	return p
}

func daysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
