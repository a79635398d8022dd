package engine

import (
	"sort"
	"time"
)

// TaskType 工程阶段分类，AutoAssign 以此匹配成员技能
type TaskType string

const (
	TaskTypeRequirements   TaskType = "requirements"
	TaskTypeExternalDesign TaskType = "external_design"
	TaskTypeDetailedDesign TaskType = "detailed_design"
	TaskTypePG             TaskType = "pg"
	TaskTypeUT             TaskType = "ut"
	TaskTypeCI             TaskType = "ci"
	TaskTypeIT             TaskType = "it"
	TaskTypeST             TaskType = "st"
	TaskTypeRelease        TaskType = "release"
)

// AllTaskTypes 按工程顺序排列的全部阶段
var AllTaskTypes = []TaskType{
	TaskTypeRequirements,
	TaskTypeExternalDesign,
	TaskTypeDetailedDesign,
	TaskTypePG,
	TaskTypeUT,
	TaskTypeCI,
	TaskTypeIT,
	TaskTypeST,
	TaskTypeRelease,
}

var taskTypeLabels = map[TaskType]string{
	TaskTypeRequirements:   "要件定義",
	TaskTypeExternalDesign: "外部設計",
	TaskTypeDetailedDesign: "詳細設計",
	TaskTypePG:             "PG",
	TaskTypeUT:             "UT",
	TaskTypeCI:             "CI",
	TaskTypeIT:             "IT",
	TaskTypeST:             "ST",
	TaskTypeRelease:        "本番化",
}

// Valid 是否为已知阶段
func (t TaskType) Valid() bool {
	_, ok := taskTypeLabels[t]
	return ok
}

// Label 阶段显示名称，未知类型返回原值
func (t TaskType) Label() string {
	if l, ok := taskTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// ParseTaskType 接受编码值或显示名称
func ParseTaskType(s string) (TaskType, bool) {
	t := TaskType(s)
	if t.Valid() {
		return t, true
	}
	for k, label := range taskTypeLabels {
		if label == s {
			return k, true
		}
	}
	return "", false
}

// Task 引擎视角的任务快照
//
// ParentID 为空时为顶层阶段；层级最多一层。
type Task struct {
	ID               int64
	ParentID         *int64
	PredecessorID    *int64
	AssignedMemberID *int64
	Name             string
	TaskType         TaskType
	PlannedHours     float64
	ActualHours      float64
	Progress         int
	IsMilestone      bool
	PlannedStart     *time.Time
	PlannedEnd       *time.Time
	ActualStart      *time.Time
	ActualEnd        *time.Time
}

// IsTopLevel 是否为顶层阶段
func (t *Task) IsTopLevel() bool { return t.ParentID == nil }

// Member 引擎视角的成员快照
type Member struct {
	ID                    int64
	Name                  string
	AvailableHoursPerWeek float64
	Skills                []TaskType
}

// HasSkill 成员是否具备某阶段技能
func (m *Member) HasSkill(t TaskType) bool {
	for _, s := range m.Skills {
		if s == t {
			return true
		}
	}
	return false
}

// ── 任务索引 ──

type taskIndex struct {
	byID     map[int64]*Task
	children map[int64][]*Task
}

func indexTasks(tasks []Task) taskIndex {
	idx := taskIndex{
		byID:     make(map[int64]*Task, len(tasks)),
		children: make(map[int64][]*Task),
	}
	for i := range tasks {
		idx.byID[tasks[i].ID] = &tasks[i]
	}
	for i := range tasks {
		t := &tasks[i]
		if t.ParentID != nil {
			idx.children[*t.ParentID] = append(idx.children[*t.ParentID], t)
		}
	}
	for _, cs := range idx.children {
		sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
	}
	return idx
}

// validateHierarchy 校验单层父子结构：父任务必须存在且自身为顶层
func (idx taskIndex) validateHierarchy() error {
	for _, t := range idx.byID {
		if t.ParentID == nil {
			continue
		}
		parent, ok := idx.byID[*t.ParentID]
		if !ok {
			return ErrParentNotFound
		}
		if parent.ParentID != nil {
			return ErrNestedChild
		}
	}
	return nil
}

func copyDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := DateOf(*t)
	return &d
}
