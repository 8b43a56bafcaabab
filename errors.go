package slicebridge

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle 句柄从未创建或已被释放
	ErrInvalidHandle = errors.New("invalid slice handle")
	// ErrClosed 切片已经关闭，底层存储已归还
	ErrClosed = errors.New("slice is closed")
	// ErrStaleBuffer 借用的外部缓冲已被释放或搬迁
	ErrStaleBuffer = errors.New("direct buffer was released or relocated")
	// ErrNilBuffer 借用型切片的源缓冲为 nil
	ErrNilBuffer = errors.New("direct buffer is nil")
	// ErrOutOfRange 偏移或长度越界
	ErrOutOfRange = errors.New("out of range")
	// ErrWrongMode 操作只对另一种所有权模式的切片合法
	ErrWrongMode = errors.New("operation not supported for slice mode")
	// ErrNotBufferOwner 只有缓冲的所有者才能释放或搬迁它
	ErrNotBufferOwner = errors.New("buffer view does not own its memory")
	// ErrRegistryClosed 注册表已关闭
	ErrRegistryClosed = errors.New("registry is closed")
)

// RangeError 描述一次越界，Value 必须落在 [Min, Max] 内
type RangeError struct {
	Op    string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %d not in [%d, %d]: %v", e.Op, e.Value, e.Min, e.Max, ErrOutOfRange)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// checkRange 校验 min <= v <= max
func checkRange(op string, v, min, max int) error {
	if v < min || v > max {
		return &RangeError{Op: op, Value: v, Min: min, Max: max}
	}
	return nil
}
