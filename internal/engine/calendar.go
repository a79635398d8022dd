package engine

import "time"

// DateLayout 日期的统一文本格式
const DateLayout = "2006-01-02"

// DateOf 将任意时间归一化为 UTC 零点的日历日期
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date 构造 UTC 零点的日历日期
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 YYYY-MM-DD 文本
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// HolidaySet 项目的非工作日集合，按归一化日期索引
//
// 每次计算调用时由调用方构造并显式传入，引擎内部不缓存。
type HolidaySet map[time.Time]struct{}

// NewHolidaySet 由日期列表构造 HolidaySet
func NewHolidaySet(dates ...time.Time) HolidaySet {
	h := make(HolidaySet, len(dates))
	for _, d := range dates {
		h[DateOf(d)] = struct{}{}
	}
	return h
}

// Contains 判断日期是否为非工作日
func (h HolidaySet) Contains(d time.Time) bool {
	_, ok := h[DateOf(d)]
	return ok
}

// Dates 返回升序排列的全部日期
func (h HolidaySet) Dates() []time.Time {
	out := make([]time.Time, 0, len(h))
	for d := range h {
		out = append(out, d)
	}
	sortDates(out)
	return out
}

// ── WorkingCalendar ──

// IsWorkingDay 日期不在 HolidaySet 中即为工作日
//
// 周末是否休息完全取决于项目是否登记了对应的 Holiday，此处不看星期几。
func IsWorkingDay(d time.Time, h HolidaySet) bool {
	return !h.Contains(d)
}

// CountWorkingDays 统计 [start, end] 闭区间内的工作日数，end 早于 start 时返回 0
func CountWorkingDays(start, end time.Time, h HolidaySet) int {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return 0
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d, h) {
			count++
		}
	}
	return count
}

// AddWorkingDays 从 d 出发按 n 的符号方向逐日移动，只对工作日计数，走满 |n| 个工作日后返回
//
// n == 0 时原样返回 d。
func AddWorkingDays(d time.Time, n int, h HolidaySet) time.Time {
	cur := DateOf(d)
	if n == 0 {
		return cur
	}
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for moved := 0; moved < n; {
		cur = cur.AddDate(0, 0, step)
		if IsWorkingDay(cur, h) {
			moved++
		}
	}
	return cur
}

// NextWorkingDay d 为工作日时返回 d，否则返回其后第一个工作日
func NextWorkingDay(d time.Time, h HolidaySet) time.Time {
	cur := DateOf(d)
	for !IsWorkingDay(cur, h) {
		cur = cur.AddDate(0, 0, 1)
	}
	return cur
}

// WorkingDaysSummary 区间工作日统计
type WorkingDaysSummary struct {
	Start        time.Time
	End          time.Time
	TotalDays    int
	HolidayCount int
	WorkingDays  int
}

// SummarizeWorkingDays 统计 [start, end] 的总天数、非工作日数与工作日数
func SummarizeWorkingDays(start, end time.Time, h HolidaySet) WorkingDaysSummary {
	start, end = DateOf(start), DateOf(end)
	s := WorkingDaysSummary{Start: start, End: end}
	if end.Before(start) {
		return s
	}
	s.TotalDays = int(end.Sub(start).Hours()/24) + 1
	s.WorkingDays = CountWorkingDays(start, end, h)
	s.HolidayCount = s.TotalDays - s.WorkingDays
	return s
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
