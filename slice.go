package slicebridge

import (
	"sync/atomic"

	"github.com/crypt0walker/SliceBridge/arena"
)

// Mode 标记切片对底层存储的所有权
type Mode uint8

const (
	// Owning 切片自己分配并独占底层存储，Close 时归还
	Owning Mode = iota + 1
	// Borrowing 切片指向外部缓冲，从不释放它
	Borrowing
)

func (m Mode) String() string {
	switch m {
	case Owning:
		return "owning"
	case Borrowing:
		return "borrowing"
	default:
		return "unknown"
	}
}

// Slice 是 *OwnedSlice 和 *DirectSlice 的公共行为，包外无法实现
//
// 同一个 Slice 不能在没有外部同步的情况下被多个 goroutine 同时使用。
type Slice interface {
	Mode() Mode
	Len() int
	Empty() bool
	// View 返回当前内容的视图，关闭后返回 ErrClosed
	View() (ByteView, error)
	// Bytes 返回当前内容的拷贝
	Bytes() ([]byte, error)
	// Close 释放切片，第二次调用返回 ErrClosed
	Close() error

	sealed()
}

var (
	_ Slice = (*OwnedSlice)(nil)
	_ Slice = (*DirectSlice)(nil)
)

// OwnedSlice 持有一份私有拷贝，与来源数据完全独立
type OwnedSlice struct {
	view   ByteView
	buf    []byte // 从 arena 分配到的完整缓冲，Close 时归还
	arena  arena.Arena
	closed int32
}

type sliceOptions struct {
	arena arena.Arena
}

// SliceOption 配置持有型切片
type SliceOption func(*sliceOptions)

// WithArena 指定底层存储的分配器
func WithArena(a arena.Arena) SliceOption {
	return func(o *sliceOptions) {
		if a != nil {
			o.arena = a
		}
	}
}

// NewSliceFromString 拷贝 s 的字节创建切片，空串得到合法的零长度切片
func NewSliceFromString(s string, opts ...SliceOption) *OwnedSlice {
	o := applySliceOptions(opts)
	buf := o.arena.Alloc(len(s))
	copy(buf, s)
	return newOwnedSlice(buf, o.arena)
}

// NewSlice 拷贝整个 data 创建切片，之后修改 data 不影响切片
func NewSlice(data []byte, opts ...SliceOption) *OwnedSlice {
	o := applySliceOptions(opts)
	buf := o.arena.Alloc(len(data))
	copy(buf, data)
	return newOwnedSlice(buf, o.arena)
}

// NewSliceAt 拷贝 data[offset:] 创建切片，offset 必须满足 0 <= offset <= len(data)
func NewSliceAt(data []byte, offset int, opts ...SliceOption) (*OwnedSlice, error) {
	if err := checkRange("slice offset", offset, 0, len(data)); err != nil {
		return nil, err
	}
	return NewSlice(data[offset:], opts...), nil
}

func applySliceOptions(opts []SliceOption) sliceOptions {
	o := sliceOptions{arena: arena.Heap}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newOwnedSlice(buf []byte, a arena.Arena) *OwnedSlice {
	return &OwnedSlice{
		view:  ByteView{data: buf},
		buf:   buf,
		arena: a,
	}
}

func (s *OwnedSlice) sealed() {}

// Mode 总是 Owning
func (s *OwnedSlice) Mode() Mode { return Owning }

// Len 返回字节长度，关闭后为 0
func (s *OwnedSlice) Len() int { return s.view.Len() }

// Empty 判断长度是否为 0
func (s *OwnedSlice) Empty() bool { return s.view.Empty() }

// View 返回私有拷贝上的视图，视图在 Close 之后不得再使用
func (s *OwnedSlice) View() (ByteView, error) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ByteView{}, ErrClosed
	}
	return s.view, nil
}

// Bytes 返回内容的拷贝
func (s *OwnedSlice) Bytes() ([]byte, error) {
	v, err := s.View()
	if err != nil {
		return nil, err
	}
	return v.ByteSlice(), nil
}

// Close 把底层存储归还给 arena，保证只归还一次
func (s *OwnedSlice) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return ErrClosed
	}
	buf := s.buf
	s.buf = nil
	s.view = ByteView{}
	s.arena.Free(buf)
	return nil
}

// Compare 比较两个切片的内容
func Compare(a, b Slice) (int, error) {
	va, vb, err := views(a, b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// StartsWith 判断 b 的内容是否为 a 的前缀
func StartsWith(a, b Slice) (bool, error) {
	va, vb, err := views(a, b)
	if err != nil {
		return false, err
	}
	return va.StartsWith(vb), nil
}

// ToString 渲染切片内容，见 ByteView.ToString
func ToString(s Slice, hex bool) (string, error) {
	v, err := s.View()
	if err != nil {
		return "", err
	}
	return v.ToString(hex), nil
}

func views(a, b Slice) (ByteView, ByteView, error) {
	va, err := a.View()
	if err != nil {
		return ByteView{}, ByteView{}, err
	}
	vb, err := b.View()
	if err != nil {
		return ByteView{}, ByteView{}, err
	}
	return va, vb, nil
}
