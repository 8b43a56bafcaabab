package slicebridge

import "bytes"

const hexDigits = "0123456789ABCDEF"

// ByteView 封装了一个字节区间的只读视图
// 持有型切片的 ByteView 指向私有拷贝；借用型切片的 ByteView 直接指向外部缓冲，
// 外部缓冲的写入对它可见
type ByteView struct {
	data []byte
}

// NewByteView 在 b 上创建视图，不拷贝
func NewByteView(b []byte) ByteView {
	return ByteView{data: b}
}

// Len 返回字节长度
func (b ByteView) Len() int {
	return len(b.data)
}

// Empty 判断长度是否为 0
func (b ByteView) Empty() bool {
	return len(b.data) == 0
}

// ByteSlice 返回数据的拷贝
func (b ByteView) ByteSlice() []byte {
	return cloneBytes(b.data)
}

// String 将数据按原样转为字符串
func (b ByteView) String() string {
	return string(b.data)
}

// ToString 渲染视图内容。hex 为 true 时每个字节输出两位大写十六进制，
// 否则按原始字节输出（不保证是合法 UTF-8）
func (b ByteView) ToString(hex bool) string {
	if !hex {
		return string(b.data)
	}
	out := make([]byte, 2*len(b.data))
	for i, c := range b.data {
		out[2*i] = hexDigits[c>>4]
		out[2*i+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// Compare 按字节字典序三路比较，较短的前缀排在前面
func (b ByteView) Compare(other ByteView) int {
	return bytes.Compare(b.data, other.data)
}

// StartsWith 判断 other 是否为前缀，空视图是任何视图的前缀
func (b ByteView) StartsWith(other ByteView) bool {
	return bytes.HasPrefix(b.data, other.data)
}

// Equal 判断内容是否相同
func (b ByteView) Equal(other ByteView) bool {
	return bytes.Equal(b.data, other.data)
}

// cloneBytes 是一个内部辅助函数，专门用于拷贝切片
func cloneBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
