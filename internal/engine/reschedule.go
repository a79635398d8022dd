package engine

import (
	"sort"
	"time"
)

// DateChange 单个任务的日期变更（预览与执行共用）
type DateChange struct {
	TaskID       int64
	Name         string
	ParentID     *int64
	IsChild      bool
	CurrentStart *time.Time
	CurrentEnd   *time.Time
	NewStart     *time.Time
	NewEnd       *time.Time
}

// ReschedulePlan 级联平移计划
type ReschedulePlan struct {
	PivotID   int64
	PivotName string
	ShiftDays int
	Changes   []DateChange
}

// TotalCount 受影响任务数（含子任务）
func (p ReschedulePlan) TotalCount() int { return len(p.Changes) }

// ════════════════════════════════════════════════════════════
// PlanReschedule 级联平移
// ════════════════════════════════════════════════════════════
//
// 受影响阶段：顶层、非里程碑、计划开始日不早于基准任务计划开始日（基准任务本身满足条件时包含在内）。
// 每个受影响阶段及其非里程碑子任务的已设置日期统一平移 shiftDays 个工作日。
// 输出顺序：阶段按 (计划开始日, id)，子任务按 id 紧随所属阶段之后。

func PlanReschedule(tasks []Task, pivotID int64, shiftDays int, h HolidaySet) (ReschedulePlan, error) {
	if shiftDays == 0 {
		return ReschedulePlan{}, ErrZeroShift
	}

	idx := indexTasks(tasks)
	if err := idx.validateHierarchy(); err != nil {
		return ReschedulePlan{}, err
	}

	pivot, ok := idx.byID[pivotID]
	if !ok {
		return ReschedulePlan{}, ErrPivotNotFound
	}
	if pivot.PlannedStart == nil {
		return ReschedulePlan{}, ErrPivotNoStartDate
	}
	anchor := DateOf(*pivot.PlannedStart)

	// 1. 筛选受影响阶段
	var phases []*Task
	for i := range tasks {
		t := &tasks[i]
		if !t.IsTopLevel() || t.IsMilestone || t.PlannedStart == nil {
			continue
		}
		if DateOf(*t.PlannedStart).Before(anchor) {
			continue
		}
		phases = append(phases, t)
	}
	sort.Slice(phases, func(i, j int) bool {
		si, sj := DateOf(*phases[i].PlannedStart), DateOf(*phases[j].PlannedStart)
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return phases[i].ID < phases[j].ID
	})

	// 2. 阶段 + 子任务统一平移
	plan := ReschedulePlan{PivotID: pivot.ID, PivotName: pivot.Name, ShiftDays: shiftDays}
	for _, phase := range phases {
		plan.Changes = append(plan.Changes, shiftTask(phase, shiftDays, h))
		for _, child := range idx.children[phase.ID] {
			if child.IsMilestone {
				continue
			}
			plan.Changes = append(plan.Changes, shiftTask(child, shiftDays, h))
		}
	}
	return plan, nil
}

func shiftTask(t *Task, shiftDays int, h HolidaySet) DateChange {
	c := DateChange{
		TaskID:       t.ID,
		Name:         t.Name,
		ParentID:     t.ParentID,
		IsChild:      t.ParentID != nil,
		CurrentStart: copyDate(t.PlannedStart),
		CurrentEnd:   copyDate(t.PlannedEnd),
	}
	if t.PlannedStart != nil {
		d := AddWorkingDays(*t.PlannedStart, shiftDays, h)
		c.NewStart = &d
	}
	if t.PlannedEnd != nil {
		d := AddWorkingDays(*t.PlannedEnd, shiftDays, h)
		c.NewEnd = &d
	}
	return c
}
