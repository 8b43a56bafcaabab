package slicebridge

import "sync/atomic"

// Buffer 是由调用方管理生命周期的一段连续内存，DirectSlice 借用它而不拷贝
//
// 满足 0 <= position <= limit <= capacity。Grow 和 Release 会让已有借用者
// 失效：它们在下一次读取时返回 ErrStaleBuffer，而不是读到搬迁前或释放后的内存。
type Buffer struct {
	data     []byte
	position int
	limit    int
	life     *lifetime
	gen      uint64 // 创建或最近一次搬迁时的代数
	owner    bool
}

// lifetime 记录一段内存的代数，源缓冲和它派生出的视图共享同一个 lifetime
type lifetime struct {
	gen      uint64
	released int32
}

func (l *lifetime) generation() uint64 {
	return atomic.LoadUint64(&l.gen)
}

// NewBuffer 分配容量为 capacity 的缓冲，position 为 0，limit 为 capacity
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		panic("slicebridge: negative buffer capacity")
	}
	return WrapBuffer(make([]byte, capacity))
}

// WrapBuffer 以 b 作为底层内存创建缓冲，不拷贝
func WrapBuffer(b []byte) *Buffer {
	return &Buffer{
		data:  b,
		limit: len(b),
		life:  &lifetime{},
		owner: true,
	}
}

// Capacity 返回容量
func (b *Buffer) Capacity() int { return len(b.data) }

// Position 返回当前位置
func (b *Buffer) Position() int { return b.position }

// Limit 返回上界
func (b *Buffer) Limit() int { return b.limit }

// Remaining 返回 limit - position
func (b *Buffer) Remaining() int { return b.limit - b.position }

// SetPosition 设置位置，必须满足 0 <= p <= limit
func (b *Buffer) SetPosition(p int) error {
	if err := checkRange("buffer position", p, 0, b.limit); err != nil {
		return err
	}
	b.position = p
	return nil
}

// SetLimit 设置上界，必须满足 0 <= l <= capacity；position 超过新上界时被截到上界
func (b *Buffer) SetLimit(l int) error {
	if err := checkRange("buffer limit", l, 0, len(b.data)); err != nil {
		return err
	}
	b.limit = l
	if b.position > l {
		b.position = l
	}
	return nil
}

// Put 在 position 处写入 p 并前移 position
func (b *Buffer) Put(p []byte) error {
	if err := b.live(); err != nil {
		return err
	}
	if err := checkRange("buffer put", len(p), 0, b.Remaining()); err != nil {
		return err
	}
	copy(b.data[b.position:], p)
	b.position += len(p)
	return nil
}

// Flip 把 limit 设为 position，position 归零，准备读取刚写入的数据
func (b *Buffer) Flip() {
	b.limit = b.position
	b.position = 0
}

// Rewind 把 position 归零
func (b *Buffer) Rewind() {
	b.position = 0
}

// Bytes 返回整段底层内存，不拷贝
func (b *Buffer) Bytes() ([]byte, error) {
	if err := b.live(); err != nil {
		return nil, err
	}
	return b.data, nil
}

// Grow 把容量扩大 n 字节。底层内存会被搬迁，所有借用者随之失效
func (b *Buffer) Grow(n int) error {
	if !b.owner {
		return ErrNotBufferOwner
	}
	if err := b.live(); err != nil {
		return err
	}
	if n < 0 {
		return &RangeError{Op: "buffer grow", Value: n, Min: 0, Max: int(^uint(0) >> 1)}
	}
	data := make([]byte, len(b.data)+n)
	copy(data, b.data)
	b.data = data
	b.gen = atomic.AddUint64(&b.life.gen, 1)
	return nil
}

// Release 释放底层内存，所有借用者随之失效，第二次调用返回 ErrStaleBuffer
func (b *Buffer) Release() error {
	if !b.owner {
		return ErrNotBufferOwner
	}
	if !atomic.CompareAndSwapInt32(&b.life.released, 0, 1) {
		return ErrStaleBuffer
	}
	atomic.AddUint64(&b.life.gen, 1)
	b.data = nil
	b.position, b.limit = 0, 0
	return nil
}

// Released 判断底层内存是否已被释放
func (b *Buffer) Released() bool {
	return atomic.LoadInt32(&b.life.released) == 1
}

func (b *Buffer) live() error {
	if b.Released() || b.life.generation() != b.gen {
		return ErrStaleBuffer
	}
	return nil
}

// view 在同一段内存上派生一个不持有所有权的缓冲
func (b *Buffer) view(mem []byte) *Buffer {
	return &Buffer{
		data:  mem,
		limit: len(mem),
		life:  b.life,
		gen:   b.gen,
	}
}
