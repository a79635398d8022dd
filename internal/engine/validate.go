package engine

import "time"

// ValidateTask 写入前校验任务字段与层级 / 前置关系
//
// siblings 为同一项目内的其他任务（可包含 t 的旧版本，按 id 跳过）；新建任务的 ID 为 0。
func ValidateTask(t Task, siblings []Task) error {
	if t.PlannedStart != nil && t.PlannedEnd != nil && DateOf(*t.PlannedEnd).Before(DateOf(*t.PlannedStart)) {
		return ErrInvalidDateRange
	}
	if t.ActualStart != nil && t.ActualEnd != nil && DateOf(*t.ActualEnd).Before(DateOf(*t.ActualStart)) {
		return ErrInvalidDateRange
	}
	if t.Progress < 0 || t.Progress > 100 {
		return ErrInvalidProgress
	}
	if t.PlannedHours < 0 || t.ActualHours < 0 {
		return ErrNegativeHours
	}
	if t.TaskType != "" && !t.TaskType.Valid() {
		return ErrInvalidTaskType
	}

	byID := make(map[int64]*Task, len(siblings))
	hasChildren := false
	for i := range siblings {
		s := &siblings[i]
		if t.ID != 0 && s.ID == t.ID {
			continue
		}
		byID[s.ID] = s
		if t.ID != 0 && s.ParentID != nil && *s.ParentID == t.ID {
			hasChildren = true
		}
	}

	if t.ParentID != nil {
		if t.ID != 0 && *t.ParentID == t.ID {
			return ErrSelfParent
		}
		parent, ok := byID[*t.ParentID]
		if !ok {
			return ErrParentNotFound
		}
		if parent.ParentID != nil {
			return ErrNestedChild
		}
		if hasChildren {
			return ErrParentHasChildren
		}
	}

	if t.PredecessorID != nil {
		if t.ID != 0 && *t.PredecessorID == t.ID {
			return ErrSelfPredecessor
		}
		pred, ok := byID[*t.PredecessorID]
		if !ok {
			return ErrPredecessorNotFound
		}
		if t.ID != 0 && pred.PredecessorID != nil && *pred.PredecessorID == t.ID {
			return ErrPredecessorCycle
		}
	}
	return nil
}

// ── 项目派生字段 ──

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectOnHold     ProjectStatus = "on_hold"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// Valid 是否为已知状态
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// DeriveProjectStatus 由任务进度推导状态；on_hold / cancelled 为人工状态，保持不变
func DeriveProjectStatus(current ProjectStatus, tasks []Task) ProjectStatus {
	if current == ProjectOnHold || current == ProjectCancelled {
		return current
	}
	if len(tasks) == 0 {
		return ProjectPlanning
	}
	allDone := true
	anyStarted := false
	for i := range tasks {
		t := &tasks[i]
		if t.Progress < 100 {
			allDone = false
		}
		if t.Progress > 0 || t.ActualStart != nil {
			anyStarted = true
		}
	}
	switch {
	case allDone:
		return ProjectCompleted
	case anyStarted:
		return ProjectInProgress
	default:
		return ProjectPlanning
	}
}

// ProjectSpan 项目派生的起止日期与总计划工时
type ProjectSpan struct {
	Start             *time.Time
	End               *time.Time
	TotalPlannedHours float64
}

// DeriveProjectSpan 取任务计划日期的最小 / 最大值与计划工时之和
func DeriveProjectSpan(tasks []Task) ProjectSpan {
	var span ProjectSpan
	for i := range tasks {
		t := &tasks[i]
		span.TotalPlannedHours += nonNegative(t.PlannedHours)
		if t.PlannedStart != nil {
			d := DateOf(*t.PlannedStart)
			if span.Start == nil || d.Before(*span.Start) {
				span.Start = &d
			}
		}
		if t.PlannedEnd != nil {
			d := DateOf(*t.PlannedEnd)
			if span.End == nil || d.After(*span.End) {
				span.End = &d
			}
		}
	}
	return span
}
