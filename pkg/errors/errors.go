package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Kind 业务错误分类
type Kind int

const (
	// KindValidation 输入不合法（平移天数为 0、缺少起始日期等）
	KindValidation Kind = iota + 1
	// KindIntegrity 引用的任务 / 成员 / 父任务不存在，或层级关系被破坏
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// Error 带分类的业务错误，Unwrap 返回原始错误，便于 errors.Is 匹配哨兵值
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Validation 将 err 标记为 ValidationError
func Validation(err error) error {
	return &Error{Kind: KindValidation, Err: err}
}

// Integrity 将 err 标记为 IntegrityError
func Integrity(err error) error {
	return &Error{Kind: KindIntegrity, Err: err}
}

// NewValidation 以消息创建 ValidationError
func NewValidation(msg string) error {
	return Validation(errors.New(msg))
}

// NewIntegrity 以消息创建 IntegrityError
func NewIntegrity(msg string) error {
	return Integrity(errors.New(msg))
}

// KindOf 返回 err 链上第一个分类错误的 Kind，无分类时返回 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation 判断 err 是否为 ValidationError
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsIntegrity 判断 err 是否为 IntegrityError
func IsIntegrity(err error) bool { return KindOf(err) == KindIntegrity }
