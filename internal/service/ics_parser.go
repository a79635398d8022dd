package service

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将 iCalendar (RFC 5545) 中的事件展开为按天的非工作日。
//
// 规则：
//   - 全天事件 DTEND 为开区间；无 DTEND 视为单日
//   - 带时间的事件覆盖起止时刻所在的每一天
//   - RRULE 支持 DAILY / WEEKLY / YEARLY，配合 INTERVAL / COUNT / UNTIL
//   - EXDATE 排除对应的重复起始日
//   - 只保留 [windowStart, windowEnd] 内的日期；同一天多个事件取第一个名称
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	icsMaxEventDays = 31   // 单个事件最多展开的天数
	icsMaxRepeats   = 1000 // 单个 RRULE 最多展开的次数
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseHolidayICS 解析 ICS 内容，返回按日期排序的非工作日（Type 由调用方填写）
func ParseHolidayICS(reader io.Reader, loc *time.Location, windowStart, windowEnd time.Time) ([]engine.GeneratedHoliday, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSParse, err)
	}

	windowStart = engine.DateOf(windowStart)
	windowEnd = engine.DateOf(windowEnd)

	byDate := make(map[time.Time]string)
	for _, evt := range cal.Events() {
		name, days, ok := parseHolidayEvent(evt, loc)
		if !ok {
			continue
		}
		for _, occ := range expandOccurrences(evt, days[0], windowEnd, loc) {
			offset := occ.Sub(days[0])
			for _, d := range days {
				day := engine.DateOf(d.Add(offset))
				if day.Before(windowStart) || day.After(windowEnd) {
					continue
				}
				if _, exists := byDate[day]; !exists {
					byDate[day] = name
				}
			}
		}
	}

	result := make([]engine.GeneratedHoliday, 0, len(byDate))
	for d, name := range byDate {
		result = append(result, engine.GeneratedHoliday{Date: d, Name: name})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// parseHolidayEvent 解析单个 VEVENT 的名称与首次发生覆盖的日期
func parseHolidayEvent(evt *ics.VEvent, loc *time.Location) (string, []time.Time, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return "", nil, false
	}
	name := strings.TrimSpace(summary.Value)
	if len([]rune(name)) > 100 {
		name = string([]rune(name)[:100])
	}

	dtStart, allDay, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return "", nil, false
	}
	first := engine.DateOf(dtStart)
	last := first

	if dtEnd, _, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc); err == nil && dtEnd.After(dtStart) {
		if allDay {
			// 全天事件的 DTEND 为次日
			last = engine.DateOf(dtEnd).AddDate(0, 0, -1)
		} else {
			last = engine.DateOf(dtEnd.Add(-time.Second))
		}
	}
	if last.Before(first) {
		last = first
	}

	var days []time.Time
	for d := first; !d.After(last) && len(days) < icsMaxEventDays; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return name, days, true
}

// expandOccurrences 根据 RRULE / EXDATE 计算每次发生的起始日
func expandOccurrences(evt *ics.VEvent, first, windowEnd time.Time, loc *time.Location) []time.Time {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return []time.Time{first}
	}

	rule := parseRRule(rruleProp.Value)
	var step func(d time.Time, n int) time.Time
	switch rule.freq {
	case "DAILY":
		step = func(d time.Time, n int) time.Time { return d.AddDate(0, 0, n) }
	case "WEEKLY":
		step = func(d time.Time, n int) time.Time { return d.AddDate(0, 0, 7*n) }
	case "YEARLY":
		step = func(d time.Time, n int) time.Time { return d.AddDate(n, 0, 0) }
	default:
		return []time.Time{first}
	}

	exDates := parseExDates(evt, loc)
	until := windowEnd
	if !rule.until.IsZero() && engine.DateOf(rule.until).Before(until) {
		until = engine.DateOf(rule.until)
	}

	var result []time.Time
	for i := 0; i < icsMaxRepeats; i++ {
		if rule.count > 0 && i >= rule.count {
			break
		}
		current := step(first, i*rule.interval)
		if current.After(until) {
			break
		}
		if !exDates[current.Format("20060102")] {
			result = append(result, current)
		}
	}
	return result
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=YEARLY;COUNT=3;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			fmt.Sscanf(kv[1], "%d", &r.interval)
		case "COUNT":
			fmt.Sscanf(kv[1], "%d", &r.count)
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
			}
			r.until = t
		}
	}
	if r.interval < 1 {
		r.interval = 1
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE（可能以逗号分隔多个值）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			t, err := time.Parse("20060102T150405Z", v)
			if err == nil {
				t = t.In(loc)
			} else {
				t, err = time.Parse("20060102T150405", v)
				if err != nil {
					t, err = time.Parse("20060102", v)
				}
			}
			if err == nil {
				exDates[t.Format("20060102")] = true
			}
		}
	}
	return exDates
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，第二个返回值表示是否为全天日期
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	if t, err := time.Parse("20060102", val); err == nil {
		return engine.Date(t.Year(), t.Month(), t.Day()), true, nil
	}
	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return inLocation(t.In(loc)), false, nil
	}
	if t, err := time.Parse("20060102T150405", val); err == nil {
		src := loc
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				src = tzLoc
			}
		}
		local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, src).In(loc)
		return inLocation(local), false, nil
	}

	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}

// inLocation 保留业务时区下的墙上时间，换成 UTC 表示以便按日期归一
func inLocation(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
