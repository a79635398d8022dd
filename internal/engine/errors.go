package engine

import (
	"errors"

	pkgerrors "github.com/ragayama123/EVM-PM-Tool/pkg/errors"
)

// ── 校验错误（ValidationError） ──

var (
	ErrZeroShift         = pkgerrors.Validation(errors.New("平移天数不能为 0"))
	ErrPivotNoStartDate  = pkgerrors.Validation(errors.New("基准任务没有计划开始日期，无法作为平移基准"))
	ErrMissingStartDate  = pkgerrors.Validation(errors.New("缺少排程起始日期"))
	ErrInvalidDateRange  = pkgerrors.Validation(errors.New("计划结束日期不能早于计划开始日期"))
	ErrInvalidProgress   = pkgerrors.Validation(errors.New("进度必须在 0-100 之间"))
	ErrNegativeHours     = pkgerrors.Validation(errors.New("工时不能为负数"))
	ErrInvalidTaskType   = pkgerrors.Validation(errors.New("未知的任务类型"))
	ErrSelfParent        = pkgerrors.Validation(errors.New("任务不能以自身为父任务"))
	ErrSelfPredecessor   = pkgerrors.Validation(errors.New("任务不能以自身为前置任务"))
	ErrPredecessorCycle  = pkgerrors.Validation(errors.New("前置任务形成循环"))
	ErrParentHasChildren = pkgerrors.Validation(errors.New("已有子任务的阶段不能再挂到其他阶段下"))
)

// ── 完整性错误（IntegrityError） ──

var (
	ErrPivotNotFound       = pkgerrors.Integrity(errors.New("基准任务不存在"))
	ErrTaskNotFound        = pkgerrors.Integrity(errors.New("任务不存在"))
	ErrParentNotFound      = pkgerrors.Integrity(errors.New("父任务不存在"))
	ErrNestedChild         = pkgerrors.Integrity(errors.New("任务层级最多一层，父任务不能是子任务"))
	ErrPredecessorNotFound = pkgerrors.Integrity(errors.New("前置任务不存在"))
)

// Warning 计算过程中的非致命提示，随结果一起返回
type Warning struct {
	Code    string
	TaskID  int64
	Message string
}

const (
	WarnNoSkilledMember = "no_skilled_member"
	WarnMissingTaskType = "missing_task_type"
	WarnFixedDate       = "fixed_date"
	WarnNotTopLevel     = "not_top_level"
)
