package slicebridge

import (
	"bytes"
	"errors"
	"testing"
)

// TestDirectSliceToEnd_FullBuffer 未消费的缓冲借出整个容量
func TestDirectSliceToEnd_FullBuffer(t *testing.T) {
	buf := WrapBuffer([]byte("0123456789"))
	s, err := NewDirectSliceToEnd(buf)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 10 || s.Mode() != Borrowing {
		t.Fatalf("expected borrowing slice of 10 bytes, got %s/%d", s.Mode(), s.Len())
	}
}

// TestDirectSliceToEnd_PartiallyConsumed 已写入 4 字节的缓冲只借出剩余的 6 字节
func TestDirectSliceToEnd_PartiallyConsumed(t *testing.T) {
	buf := NewBuffer(10)
	if err := buf.Put([]byte("head")); err != nil {
		t.Fatal(err)
	}
	s, err := NewDirectSliceToEnd(buf)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 6 {
		t.Fatalf("expected remaining 6 bytes, got %d", s.Len())
	}

	// flip 之后从头读刚写入的部分
	buf.Flip()
	head, err := NewDirectSliceToEnd(buf)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := head.View()
	if v.String() != "head" {
		t.Fatalf("expected head, got %q", v.String())
	}
}

func TestNewDirectSlice_Length(t *testing.T) {
	buf := WrapBuffer([]byte("0123456789"))
	if err := buf.SetPosition(2); err != nil {
		t.Fatal(err)
	}
	s, err := NewDirectSlice(buf, 3)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.Bytes()
	if string(got) != "234" {
		t.Fatalf("expected 234, got %q", got)
	}

	for _, n := range []int{-1, 9} {
		if _, err := NewDirectSlice(buf, n); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("length %d: expected ErrOutOfRange, got %v", n, err)
		}
	}
}

func TestNewDirectSlice_NilBuffer(t *testing.T) {
	if _, err := NewDirectSlice(nil, 0); !errors.Is(err, ErrNilBuffer) {
		t.Fatalf("expected ErrNilBuffer, got %v", err)
	}
	if _, err := NewDirectSliceToEnd(nil); !errors.Is(err, ErrNilBuffer) {
		t.Fatalf("expected ErrNilBuffer, got %v", err)
	}
}

func TestDirectSlice_RemovePrefix(t *testing.T) {
	s, _ := NewDirectSliceToEnd(WrapBuffer([]byte("abcdef")))

	if err := s.RemovePrefix(2); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 4 {
		t.Fatalf("expected len 4, got %d", s.Len())
	}
	if c, _ := s.At(0); c != 'c' {
		t.Fatalf("expected c at 0, got %q", c)
	}

	// 越界必须失败，长度不能下溢
	err := s.RemovePrefix(5)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if s.Len() != 4 {
		t.Fatalf("failed RemovePrefix changed len to %d", s.Len())
	}
	if err := s.RemovePrefix(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for -1, got %v", err)
	}

	if err := s.RemovePrefix(4); err != nil || !s.Empty() {
		t.Fatalf("removing the whole window should leave it empty: %v", err)
	}
}

func TestDirectSlice_At(t *testing.T) {
	s, _ := NewDirectSliceToEnd(WrapBuffer([]byte("xyz")))
	for _, i := range []int{-1, 3} {
		if _, err := s.At(i); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("At(%d): expected ErrOutOfRange, got %v", i, err)
		}
	}
	if c, err := s.At(2); err != nil || c != 'z' {
		t.Fatalf("At(2) = %q, %v", c, err)
	}
}

func TestDirectSlice_Clear(t *testing.T) {
	mem := []byte("abc")
	s, _ := NewDirectSliceToEnd(WrapBuffer(mem))
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 || !s.Empty() {
		t.Fatalf("expected empty after clear, got %d", s.Len())
	}
	if string(mem) != "abc" {
		t.Fatalf("clear must not touch the referent, got %q", mem)
	}
}

// TestDirectSlice_Aliasing 同一个 10 字节缓冲上的两个切片各自修改窗口，互不影响，
// 底层字节保持不变，并且都能看到通过缓冲写入的数据
func TestDirectSlice_Aliasing(t *testing.T) {
	mem := []byte("0123456789")
	buf := WrapBuffer(mem)
	a, _ := NewDirectSliceToEnd(buf)
	b, _ := NewDirectSliceToEnd(buf)

	if err := a.RemovePrefix(3); err != nil {
		t.Fatal(err)
	}
	if err := b.Clear(); err != nil {
		t.Fatal(err)
	}
	if a.Len() != 7 || b.Len() != 0 {
		t.Fatalf("views must be independent, got a=%d b=%d", a.Len(), b.Len())
	}
	if string(mem) != "0123456789" {
		t.Fatalf("underlying bytes changed: %q", mem)
	}
	for i := 0; i < a.Len(); i++ {
		c, err := a.At(i)
		if err != nil || c != mem[i+3] {
			t.Fatalf("a.At(%d) = %q, %v", i, c, err)
		}
	}

	c, _ := NewDirectSliceToEnd(buf)
	mem[5] = 'X'
	if got, _ := a.At(2); got != 'X' {
		t.Fatalf("write through the buffer should be visible, got %q", got)
	}
	if got, _ := c.At(5); got != 'X' {
		t.Fatalf("write through the buffer should be visible to every borrower, got %q", got)
	}
}

// TestDirectSlice_Data 导出的缓冲与切片共享内存
func TestDirectSlice_Data(t *testing.T) {
	mem := []byte("abcdef")
	s, _ := NewDirectSliceToEnd(WrapBuffer(mem))
	s.RemovePrefix(1)

	out, err := s.Data()
	if err != nil {
		t.Fatal(err)
	}
	if out.Capacity() != 5 || out.Remaining() != 5 {
		t.Fatalf("expected 5-byte view, got cap %d remaining %d", out.Capacity(), out.Remaining())
	}
	b, _ := out.Bytes()
	if string(b) != "bcdef" {
		t.Fatalf("expected bcdef, got %q", b)
	}
	b[0] = 'B'
	if mem[1] != 'B' {
		t.Fatal("Data must not copy")
	}

	if err := out.Release(); !errors.Is(err, ErrNotBufferOwner) {
		t.Fatalf("derived buffer must not release memory, got %v", err)
	}
	if err := out.Grow(1); !errors.Is(err, ErrNotBufferOwner) {
		t.Fatalf("derived buffer must not relocate memory, got %v", err)
	}
}

// TestDirectSlice_StaleAfterRelease 缓冲释放后，借用者返回 ErrStaleBuffer 而不是旧数据
func TestDirectSlice_StaleAfterRelease(t *testing.T) {
	buf := WrapBuffer([]byte("abc"))
	s, _ := NewDirectSliceToEnd(buf)
	out, _ := s.Data()

	if err := buf.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.View(); !errors.Is(err, ErrStaleBuffer) {
		t.Fatalf("expected ErrStaleBuffer, got %v", err)
	}
	if _, err := s.At(0); !errors.Is(err, ErrStaleBuffer) {
		t.Fatalf("expected ErrStaleBuffer, got %v", err)
	}
	if _, err := out.Bytes(); !errors.Is(err, ErrStaleBuffer) {
		t.Fatalf("derived buffer should be stale too, got %v", err)
	}
	if err := buf.Release(); !errors.Is(err, ErrStaleBuffer) {
		t.Fatalf("second release: expected ErrStaleBuffer, got %v", err)
	}
	if _, err := NewDirectSliceToEnd(buf); !errors.Is(err, ErrStaleBuffer) {
		t.Fatalf("borrowing a released buffer: expected ErrStaleBuffer, got %v", err)
	}
}

// TestDirectSlice_StaleAfterGrow 缓冲搬迁后旧借用失效，新借用正常
func TestDirectSlice_StaleAfterGrow(t *testing.T) {
	buf := WrapBuffer([]byte("abc"))
	old, _ := NewDirectSliceToEnd(buf)

	if err := buf.Grow(4); err != nil {
		t.Fatal(err)
	}
	if buf.Capacity() != 7 {
		t.Fatalf("expected capacity 7, got %d", buf.Capacity())
	}
	if _, err := old.Bytes(); !errors.Is(err, ErrStaleBuffer) {
		t.Fatalf("expected ErrStaleBuffer, got %v", err)
	}

	fresh, err := NewDirectSliceToEnd(buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := fresh.Bytes()
	if err != nil || !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("fresh borrow = %q, %v", got, err)
	}
}

func TestDirectSlice_Close(t *testing.T) {
	mem := []byte("abc")
	s, _ := NewDirectSliceToEnd(WrapBuffer(mem))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Clear(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.RemovePrefix(0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if string(mem) != "abc" {
		t.Fatal("closing a borrowing slice must not touch the referent")
	}
}

func TestBuffer_Bounds(t *testing.T) {
	buf := NewBuffer(4)
	if err := buf.SetPosition(5); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if err := buf.SetLimit(5); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if err := buf.Put([]byte("12345")); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	buf.SetPosition(3)
	buf.SetLimit(2)
	if buf.Position() != 2 || buf.Remaining() != 0 {
		t.Fatalf("position should clamp to the new limit, got %d", buf.Position())
	}
	buf.Rewind()
	if buf.Position() != 0 || buf.Limit() != 2 {
		t.Fatalf("unexpected state after rewind: pos %d limit %d", buf.Position(), buf.Limit())
	}
}
