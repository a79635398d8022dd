package engine

import (
	"sort"
	"time"
)

// HolidayType 非工作日来源
type HolidayType string

const (
	HolidayWeekend  HolidayType = "weekend"
	HolidayNational HolidayType = "national"
	HolidayCompany  HolidayType = "company"
	HolidayCustom   HolidayType = "custom"
)

// Valid 是否为已知类型
func (t HolidayType) Valid() bool {
	switch t {
	case HolidayWeekend, HolidayNational, HolidayCompany, HolidayCustom:
		return true
	}
	return false
}

// GeneratedHoliday 自动生成的候选非工作日
type GeneratedHoliday struct {
	Date time.Time
	Name string
	Type HolidayType
}

var weekendNames = map[time.Weekday]string{
	time.Saturday: "土曜日",
	time.Sunday:   "日曜日",
}

// GenerateHolidays 生成 [start, end] 内的周末与法定节假日
//
// 每个日期至多一行，按日期升序；周末优先判定，既是周末又是法定节假日的日期记为 weekend。
func GenerateHolidays(start, end time.Time, includeWeekends, includeNational bool) []GeneratedHoliday {
	start, end = DateOf(start), DateOf(end)
	var out []GeneratedHoliday
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if includeWeekends {
			if name, ok := weekendNames[d.Weekday()]; ok {
				out = append(out, GeneratedHoliday{Date: d, Name: name, Type: HolidayWeekend})
				continue
			}
		}
		if includeNational {
			if name, ok := nationalHolidays[d]; ok {
				out = append(out, GeneratedHoliday{Date: d, Name: name, Type: HolidayNational})
			}
		}
	}
	return out
}

// FilterGenerated 按已有非工作日拆分生成结果
//
// 已有日期在 overwrite 为 false 时跳过，为 true 时进入 overwrite 列表；其余进入 create 列表。
func FilterGenerated(generated []GeneratedHoliday, existing HolidaySet, overwrite bool) (create, replace []GeneratedHoliday, skipped int) {
	for _, g := range generated {
		if !existing.Contains(g.Date) {
			create = append(create, g)
			continue
		}
		if overwrite {
			replace = append(replace, g)
			continue
		}
		skipped++
	}
	return create, replace, skipped
}

// NationalHolidayName 返回法定节假日名称
func NationalHolidayName(d time.Time) (string, bool) {
	name, ok := nationalHolidays[DateOf(d)]
	return name, ok
}

func sortDates(ds []time.Time) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}
