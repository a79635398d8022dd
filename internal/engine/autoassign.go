package engine

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	// DefaultHoursPerDay 无匹配成员时估算工期使用的日产能
	DefaultHoursPerDay = 8.0
	// StandardWorkDaysPerWeek 周产能换算日产能的标准工作日数
	StandardWorkDaysPerWeek = 5
)

// AutoAssignInput 自动排程输入
type AutoAssignInput struct {
	Tasks   []Task
	Members []Member
	// TaskIDs 待排程的顶层阶段
	TaskIDs []int64
	// PreserveOrder 为 true 时按 TaskIDs 给定顺序排程，否则按 id 升序
	PreserveOrder      bool
	StartDate          *time.Time
	DefaultHoursPerDay float64
	WorkDaysPerWeek    int
}

// Assignment 单个阶段的排程结果
type Assignment struct {
	TaskID          int64
	Name            string
	TaskType        TaskType
	PlannedHours    float64
	CalculatedDays  int
	CurrentMemberID *int64
	NewMemberID     *int64
	NewMemberName   string
	NewStart        time.Time
	NewEnd          time.Time
	// ChildIDs 随阶段一起更新负责人与日期的非里程碑子任务
	ChildIDs []int64
}

// AutoAssignPlan 排程计划
type AutoAssignPlan struct {
	StartDate   time.Time
	Assignments []Assignment
	Warnings    []Warning
}

// TotalCount 已排程阶段数（含未匹配到成员的阶段）
func (p AutoAssignPlan) TotalCount() int { return len(p.Assignments) }

// ════════════════════════════════════════════════════════════
// PlanAutoAssign 技能匹配 + 顺序排程
// ════════════════════════════════════════════════════════════
//
// 1. 校验起始日期；空选择直接返回空计划
// 2. 排除子任务 / 里程碑 / 无任务类型的阶段（附 Warning）
// 3. 逐个阶段选择候选成员：具备技能、本批次已分配工时最少、同负载取 id 最小
// 4. 沿单条项目时间线顺序放置：下一阶段从上一阶段结束后的下一个工作日开始

func PlanAutoAssign(in AutoAssignInput, h HolidaySet) (AutoAssignPlan, error) {
	if in.StartDate == nil {
		return AutoAssignPlan{}, ErrMissingStartDate
	}
	start := NextWorkingDay(*in.StartDate, h)
	plan := AutoAssignPlan{StartDate: DateOf(*in.StartDate)}
	if len(in.TaskIDs) == 0 {
		return plan, nil
	}

	defaultPerDay := in.DefaultHoursPerDay
	if defaultPerDay <= 0 {
		defaultPerDay = DefaultHoursPerDay
	}
	workDays := in.WorkDaysPerWeek
	if workDays <= 0 {
		workDays = StandardWorkDaysPerWeek
	}

	idx := indexTasks(in.Tasks)
	if err := idx.validateHierarchy(); err != nil {
		return AutoAssignPlan{}, err
	}

	// ── 阶段1: 解析选择 ──
	selected, err := resolveSelection(idx, in.TaskIDs, in.PreserveOrder)
	if err != nil {
		return AutoAssignPlan{}, err
	}

	members := make([]Member, len(in.Members))
	copy(members, in.Members)
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	load := make(map[int64]float64, len(members))

	// ── 阶段2: 逐个排程 ──
	var cursor *time.Time
	for _, t := range selected {
		if w, skip := ineligible(t); skip {
			plan.Warnings = append(plan.Warnings, w)
			continue
		}

		a := Assignment{
			TaskID:          t.ID,
			Name:            t.Name,
			TaskType:        t.TaskType,
			PlannedHours:    t.PlannedHours,
			CurrentMemberID: t.AssignedMemberID,
		}

		perDay := defaultPerDay
		if m := pickMember(members, load, t.TaskType); m != nil {
			id := m.ID
			a.NewMemberID = &id
			a.NewMemberName = m.Name
			perDay = m.AvailableHoursPerWeek / float64(workDays)
			load[m.ID] += nonNegative(t.PlannedHours)
		} else {
			plan.Warnings = append(plan.Warnings, Warning{
				Code:    WarnNoSkilledMember,
				TaskID:  t.ID,
				Message: fmt.Sprintf("任务「%s」(ID:%d) 没有具备 %s 技能的成员，已排程但未分配负责人", t.Name, t.ID, t.TaskType),
			})
		}
		a.CalculatedDays = calculateDays(t.PlannedHours, perDay)

		next := start
		if cursor != nil {
			next = maxDate(start, AddWorkingDays(*cursor, 1, h))
		}
		a.NewStart = NextWorkingDay(next, h)
		a.NewEnd = AddWorkingDays(a.NewStart, a.CalculatedDays-1, h)
		end := a.NewEnd
		cursor = &end

		for _, child := range idx.children[t.ID] {
			if !child.IsMilestone {
				a.ChildIDs = append(a.ChildIDs, child.ID)
			}
		}
		plan.Assignments = append(plan.Assignments, a)
	}
	return plan, nil
}

// resolveSelection 去重并排序，未知 id 视为完整性错误
func resolveSelection(idx taskIndex, ids []int64, preserveOrder bool) ([]*Task, error) {
	seen := make(map[int64]bool, len(ids))
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		t, ok := idx.byID[id]
		if !ok {
			return nil, fmt.Errorf("任务 %d: %w", id, ErrTaskNotFound)
		}
		out = append(out, t)
	}
	if !preserveOrder {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	return out, nil
}

func ineligible(t *Task) (Warning, bool) {
	switch {
	case !t.IsTopLevel():
		return Warning{
			Code:    WarnNotTopLevel,
			TaskID:  t.ID,
			Message: fmt.Sprintf("任务「%s」(ID:%d) 是子任务，已跳过；子任务随所属阶段一起排程", t.Name, t.ID),
		}, true
	case t.IsMilestone:
		return Warning{
			Code:    WarnFixedDate,
			TaskID:  t.ID,
			Message: fmt.Sprintf("任务「%s」(ID:%d) 为固定日期任务，已跳过", t.Name, t.ID),
		}, true
	case t.TaskType == "":
		return Warning{
			Code:    WarnMissingTaskType,
			TaskID:  t.ID,
			Message: fmt.Sprintf("任务「%s」(ID:%d) 未设置任务类型，已跳过", t.Name, t.ID),
		}, true
	}
	return Warning{}, false
}

// pickMember members 已按 id 升序，严格小于比较保证同负载取 id 最小
func pickMember(members []Member, load map[int64]float64, taskType TaskType) *Member {
	var best *Member
	for i := range members {
		m := &members[i]
		if m.AvailableHoursPerWeek <= 0 || !m.HasSkill(taskType) {
			continue
		}
		if best == nil || load[m.ID] < load[best.ID] {
			best = m
		}
	}
	return best
}

// calculateDays ceil(planned / perDay)，至少 1 天；减去 1e-9 吸收浮点除法误差
func calculateDays(plannedHours, perDay float64) int {
	if plannedHours <= 0 || perDay <= 0 {
		return 1
	}
	days := int(math.Ceil(plannedHours/perDay - 1e-9))
	if days < 1 {
		return 1
	}
	return days
}
