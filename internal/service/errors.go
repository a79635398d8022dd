package service

import (
	"errors"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	pkgerrors "github.com/ragayama123/EVM-PM-Tool/pkg/errors"
)

// ── 业务错误 ──
// 不存在类错误在 Handler 层映射为 404，其余按 Kind 映射

var (
	ErrProjectNotFound = pkgerrors.Integrity(errors.New("项目不存在"))
	ErrTaskNotFound    = pkgerrors.Integrity(errors.New("任务不存在"))
	ErrMemberNotFound  = pkgerrors.Integrity(errors.New("成员不存在"))
	ErrHolidayNotFound = pkgerrors.Integrity(errors.New("非工作日不存在"))

	ErrHolidayExists      = pkgerrors.Integrity(errors.New("该日期已存在非工作日"))
	ErrMemberNotInProject = pkgerrors.Integrity(errors.New("负责人不属于该项目"))
	ErrTaskNotInProject   = pkgerrors.Integrity(errors.New("任务不属于该项目"))
	ErrInvalidDate        = pkgerrors.Validation(errors.New("日期格式错误，应为 YYYY-MM-DD"))
	ErrInvalidRange       = pkgerrors.Validation(errors.New("结束日期不能早于开始日期"))
	ErrRangeTooLong       = pkgerrors.Validation(errors.New("日期区间不能超过 3 年"))
	ErrInvalidHolidayType = pkgerrors.Validation(errors.New("未知的非工作日类型"))
	ErrInvalidSkill       = pkgerrors.Validation(errors.New("未知的技能类型"))
	ErrInvalidStatus      = pkgerrors.Validation(errors.New("未知的项目状态"))
	ErrICSParse           = pkgerrors.Validation(errors.New("iCalendar 文件解析失败"))
	ErrICSNoEvents        = pkgerrors.Validation(errors.New("iCalendar 文件中没有可导入的事件"))
	ErrICSFetch           = pkgerrors.Validation(errors.New("获取 iCalendar 内容失败"))
	ErrICSMissingSource   = pkgerrors.Validation(errors.New("请上传 iCalendar 文件或提供 url"))
	ErrUnsupportedFormat  = pkgerrors.Validation(errors.New("不支持的导出格式"))
	ErrCSVHeader          = pkgerrors.Validation(errors.New("CSV 表头缺少 date 或 name 列"))
	ErrCSVNoRows          = pkgerrors.Validation(errors.New("CSV 文件中没有数据行"))
	ErrCSVParse           = pkgerrors.Validation(errors.New("CSV 文件解析失败"))
	ErrWBSFile            = pkgerrors.Validation(errors.New("无法读取 WBS Excel 文件"))
	ErrWBSInvalid         = pkgerrors.Validation(errors.New("WBS 文件存在错误"))
	ErrExportGenerateFail = errors.New("生成导出文件失败")

	// ErrProjectBusy 同一项目的执行类操作正在进行
	ErrProjectBusy = errors.New("项目正在执行其他排程操作，请稍后重试")
)

// WBSRowsError 携带行级错误的 ErrWBSInvalid
type WBSRowsError struct {
	Rows []dto.WBSRowError
}

func (e *WBSRowsError) Error() string { return ErrWBSInvalid.Error() }

func (e *WBSRowsError) Unwrap() error { return ErrWBSInvalid }
