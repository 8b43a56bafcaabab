package slicebridge

import (
	"strings"
	"testing"
)

func TestByteView_ToString(t *testing.T) {
	v := NewByteView([]byte{0x00, 0x7f, 0xab, 0xff, 'a'})

	if got := v.ToString(true); got != "007FABFF61" {
		t.Fatalf("hex = %q, want %q", got, "007FABFF61")
	}
	if got := v.ToString(false); got != "\x00\x7f\xab\xffa" {
		t.Fatalf("raw = %q", got)
	}

	empty := NewByteView(nil)
	if empty.ToString(true) != "" || empty.ToString(false) != "" {
		t.Fatal("empty view should render as empty string")
	}
}

// TestByteView_HexAlphabet 十六进制输出长度为 2*Len，且每个字符都是十六进制数字
func TestByteView_HexAlphabet(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	hex := NewByteView(all).ToString(true)
	if len(hex) != 2*len(all) {
		t.Fatalf("hex length = %d, want %d", len(hex), 2*len(all))
	}
	for i, c := range hex {
		if !strings.ContainsRune("0123456789ABCDEF", c) {
			t.Fatalf("invalid hex digit %q at %d", c, i)
		}
	}
}

func TestByteView_CompareOrder(t *testing.T) {
	views := []ByteView{
		NewByteView(nil),
		NewByteView([]byte("a")),
		NewByteView([]byte("ab")),
		NewByteView([]byte("abc")),
		NewByteView([]byte("b")),
		NewByteView([]byte{0xff}),
	}

	for i, a := range views {
		if a.Compare(a) != 0 {
			t.Fatalf("compare(%q, itself) != 0", a)
		}
		for j, b := range views {
			ab, ba := a.Compare(b), b.Compare(a)
			if ab != -ba {
				t.Fatalf("compare(%q,%q)=%d but compare(%q,%q)=%d", a, b, ab, b, a, ba)
			}
			// 列表本身是升序的
			if (i < j) != (ab < 0) {
				t.Fatalf("compare(%q,%q)=%d, expected index order %d<%d", a, b, ab, i, j)
			}
			for _, c := range views {
				if ab < 0 && b.Compare(c) < 0 && a.Compare(c) >= 0 {
					t.Fatalf("ordering not transitive for %q < %q < %q", a, b, c)
				}
			}
		}
	}
}

func TestByteView_StartsWith(t *testing.T) {
	abc := NewByteView([]byte("abc"))
	empty := NewByteView(nil)

	if !abc.StartsWith(empty) || !empty.StartsWith(empty) {
		t.Fatal("empty view must be a prefix of everything")
	}
	if empty.StartsWith(abc) {
		t.Fatal("non-empty view is not a prefix of the empty view")
	}
	if !abc.StartsWith(NewByteView([]byte("ab"))) {
		t.Fatal("ab should be a prefix of abc")
	}
	if abc.StartsWith(NewByteView([]byte("abd"))) || abc.StartsWith(NewByteView([]byte("abcd"))) {
		t.Fatal("unexpected prefix match")
	}
}

func TestByteView_ByteSliceIsCopy(t *testing.T) {
	src := []byte("data")
	v := NewByteView(src)
	cp := v.ByteSlice()
	cp[0] = 'X'
	if v.String() != "data" {
		t.Fatalf("ByteSlice must return a copy, view is now %q", v.String())
	}
	if !v.Equal(NewByteView([]byte("data"))) {
		t.Fatal("Equal should compare contents")
	}
}
