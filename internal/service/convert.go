package service

import (
	"time"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
)

// ── model → engine ──

func toEngineTask(t *model.Task) engine.Task {
	et := engine.Task{
		ID:               t.ID,
		ParentID:         t.ParentID,
		PredecessorID:    t.PredecessorID,
		AssignedMemberID: t.AssignedMemberID,
		Name:             t.Name,
		PlannedHours:     t.PlannedHours,
		ActualHours:      t.ActualHours,
		Progress:         t.Progress,
		IsMilestone:      t.IsMilestone,
		PlannedStart:     t.PlannedStartDate,
		PlannedEnd:       t.PlannedEndDate,
		ActualStart:      t.ActualStartDate,
		ActualEnd:        t.ActualEndDate,
	}
	if t.TaskType != nil {
		et.TaskType = engine.TaskType(*t.TaskType)
	}
	return et
}

func toEngineTasks(tasks []model.Task) []engine.Task {
	out := make([]engine.Task, len(tasks))
	for i := range tasks {
		out[i] = toEngineTask(&tasks[i])
	}
	return out
}

func toEngineMembers(members []model.Member) []engine.Member {
	out := make([]engine.Member, len(members))
	for i, m := range members {
		skills := make([]engine.TaskType, 0, len(m.Skills))
		for _, s := range m.Skills {
			skills = append(skills, engine.TaskType(s))
		}
		out[i] = engine.Member{
			ID:                    m.ID,
			Name:                  m.Name,
			AvailableHoursPerWeek: m.AvailableHoursPerWeek,
			Skills:                skills,
		}
	}
	return out
}

func toHolidaySet(holidays []model.Holiday) engine.HolidaySet {
	dates := make([]time.Time, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date
	}
	return engine.NewHolidaySet(dates...)
}

// ── 日期 ──

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(engine.DateLayout)
	return &s
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// parseDate 空串返回 nil
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := engine.ParseDate(s)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &d, nil
}

func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	return parseDate(*s)
}

// parseRequiredDate 解析必填日期
func parseRequiredDate(s string) (time.Time, error) {
	d, err := engine.ParseDate(s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// parseRange 解析必填的 [start, end] 区间，结束早于开始时报错
func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := engine.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	e, err := engine.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return s, e, nil
}

// today 以业务时区计算当天日期
func today(loc *time.Location) time.Time {
	return engine.DateOf(time.Now().In(loc))
}

// ── model → dto ──

func toTaskResponse(t *model.Task) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:               t.ID,
		ProjectID:        t.ProjectID,
		ParentID:         t.ParentID,
		PredecessorID:    t.PredecessorID,
		AssignedMemberID: t.AssignedMemberID,
		Name:             t.Name,
		Description:      t.Description,
		TaskType:         t.TaskType,
		PlannedHours:     t.PlannedHours,
		ActualHours:      t.ActualHours,
		Progress:         t.Progress,
		IsMilestone:      t.IsMilestone,
		PlannedStartDate: formatDate(t.PlannedStartDate),
		PlannedEndDate:   formatDate(t.PlannedEndDate),
		ActualStartDate:  formatDate(t.ActualStartDate),
		ActualEndDate:    formatDate(t.ActualEndDate),
		Version:          t.Version,
		CreatedAt:        formatTime(t.CreatedAt),
		UpdatedAt:        formatTime(t.UpdatedAt),
	}
	if t.TaskType != nil {
		resp.TaskTypeLabel = engine.TaskType(*t.TaskType).Label()
	}
	if t.AssignedMember != nil {
		name := t.AssignedMember.Name
		resp.AssignedMemberName = &name
	}
	et := toEngineTask(t)
	resp.Status = string(engine.StatusOfTask(&et))
	return resp
}

func toHolidayResponse(h *model.Holiday) dto.HolidayResponse {
	return dto.HolidayResponse{
		ID:          h.ID,
		ProjectID:   h.ProjectID,
		Date:        h.Date.Format(engine.DateLayout),
		Name:        h.Name,
		HolidayType: h.HolidayType,
		CreatedAt:   formatTime(h.CreatedAt),
	}
}

func toMetricsResponse(m engine.Metrics) dto.EVMMetricsResponse {
	r := m.Rounded()
	return dto.EVMMetricsResponse{
		AsOf: r.AsOf.Format(engine.DateLayout),
		PV:   r.PV,
		EV:   r.EV,
		AC:   r.AC,
		SV:   r.SV,
		CV:   r.CV,
		SPI:  r.SPI,
		CPI:  r.CPI,
		BAC:  r.BAC,
		ETC:  r.ETC,
		EAC:  r.EAC,
	}
}

func toSummaryResponse(s engine.Summary) dto.TaskSummaryResponse {
	return dto.TaskSummaryResponse{
		TotalTasks:        s.TotalTasks,
		CompletedTasks:    s.CompletedTasks,
		InProgressTasks:   s.InProgressTasks,
		NotStartedTasks:   s.NotStartedTasks,
		TotalPlannedHours: s.TotalPlannedHours,
		TotalActualHours:  s.TotalActualHours,
		OverallProgress:   s.OverallProgress,
	}
}

func toSnapshotResponse(s *model.EVMSnapshot) dto.SnapshotResponse {
	return dto.SnapshotResponse{
		ID:           s.ID,
		ProjectID:    s.ProjectID,
		SnapshotDate: s.SnapshotDate.Format(engine.DateLayout),
		PV:           s.PV,
		EV:           s.EV,
		AC:           s.AC,
		SV:           s.SV,
		CV:           s.CV,
		SPI:          s.SPI,
		CPI:          s.CPI,
		BAC:          s.BAC,
		ETC:          s.ETC,
		EAC:          s.EAC,
		CreatedAt:    formatTime(s.CreatedAt),
	}
}

func toWarningResponses(ws []engine.Warning) []dto.WarningResponse {
	out := make([]dto.WarningResponse, len(ws))
	for i, w := range ws {
		out[i] = dto.WarningResponse{Code: w.Code, TaskID: w.TaskID, Message: w.Message}
	}
	return out
}
