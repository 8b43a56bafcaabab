package slicebridge

import "sync/atomic"

// DirectSlice 借用外部 Buffer 的一段内存，不拷贝也从不释放它
//
// 前置条件：在 DirectSlice 关闭之前，调用方必须保证缓冲没有被释放或搬迁。
// 通过 Buffer.Release / Buffer.Grow 造成的违例会被代数检查发现并返回
// ErrStaleBuffer；绕过 Buffer 直接改写底层数组的写入则对切片可见。
//
// Clear 和 RemovePrefix 只修改切片自己的起点和长度，从不修改被借用的字节，
// 因此同一缓冲上的多个 DirectSlice 互不影响各自的窗口。
type DirectSlice struct {
	src    *Buffer
	gen    uint64
	mem    []byte // 当前窗口 [start, start+len)
	closed int32
}

// NewDirectSlice 从 buf 的 position 开始借用 length 字节，
// length 必须满足 0 <= length <= buf.Remaining()
func NewDirectSlice(buf *Buffer, length int) (*DirectSlice, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}
	if err := buf.live(); err != nil {
		return nil, err
	}
	if err := checkRange("direct slice length", length, 0, buf.Remaining()); err != nil {
		return nil, err
	}
	start := buf.Position()
	return &DirectSlice{
		src: buf,
		gen: buf.gen,
		mem: buf.data[start : start+length : start+length],
	}, nil
}

// NewDirectSliceToEnd 从 buf 的 position 借用到 limit，即 buf.Remaining() 字节。
// 已经消费过一部分的缓冲只会借出剩余部分
func NewDirectSliceToEnd(buf *Buffer) (*DirectSlice, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}
	if err := buf.live(); err != nil {
		return nil, err
	}
	return NewDirectSlice(buf, buf.Remaining())
}

func (s *DirectSlice) sealed() {}

// Mode 总是 Borrowing
func (s *DirectSlice) Mode() Mode { return Borrowing }

// Len 返回窗口长度
func (s *DirectSlice) Len() int { return len(s.mem) }

// Empty 判断窗口长度是否为 0
func (s *DirectSlice) Empty() bool { return len(s.mem) == 0 }

// check 在每次访问被借用的内存之前调用
func (s *DirectSlice) check() error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrClosed
	}
	if s.src.Released() || s.src.life.generation() != s.gen {
		return ErrStaleBuffer
	}
	return nil
}

// View 返回直接指向外部内存的视图，外部写入对视图可见
func (s *DirectSlice) View() (ByteView, error) {
	if err := s.check(); err != nil {
		return ByteView{}, err
	}
	return ByteView{data: s.mem}, nil
}

// Bytes 返回窗口内容的拷贝
func (s *DirectSlice) Bytes() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return cloneBytes(s.mem), nil
}

// At 返回窗口内第 i 个字节，i 必须满足 0 <= i < Len()
func (s *DirectSlice) At(i int) (byte, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if err := checkRange("direct slice index", i, 0, len(s.mem)-1); err != nil {
		return 0, err
	}
	return s.mem[i], nil
}

// Data 把当前窗口作为一个新的 Buffer 暴露出去，与源缓冲共享内存和生命周期。
// 返回的缓冲不能 Release 或 Grow
func (s *DirectSlice) Data() (*Buffer, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.src.view(s.mem), nil
}

// Clear 把窗口长度置 0，不触碰被借用的字节
func (s *DirectSlice) Clear() error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrClosed
	}
	s.mem = s.mem[:0]
	return nil
}

// RemovePrefix 把窗口起点前移 n 字节，n 必须满足 0 <= n <= Len()
func (s *DirectSlice) RemovePrefix(n int) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrClosed
	}
	if err := checkRange("remove prefix", n, 0, len(s.mem)); err != nil {
		return err
	}
	s.mem = s.mem[n:]
	return nil
}

// Close 放弃借用，不释放外部内存
func (s *DirectSlice) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return ErrClosed
	}
	s.mem = nil
	return nil
}
