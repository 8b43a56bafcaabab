package slicebridge

// Comparator 决定键的顺序
//
// Compare 返回 <0、0、>0 分别表示 a<b、a==b、a>b。
// FindShortestSeparator 和 FindShortSuccessor 用于缩短索引块中的键，
// 返回 nil 表示保持原值不变，什么都不做的实现也是正确的。
type Comparator interface {
	Name() string
	Compare(a, b ByteView) int
	// FindShortestSeparator 在 start < limit 时可以返回 [start, limit) 内一个更短的键
	FindShortestSeparator(start []byte, limit ByteView) []byte
	// FindShortSuccessor 可以返回一个 >= key 的更短的键
	FindShortSuccessor(key []byte) []byte
}

var (
	// BytewiseComparator 按无符号字节字典序比较
	BytewiseComparator Comparator = bytewiseComparator{}
	// ReverseBytewiseComparator 与 BytewiseComparator 顺序相反
	ReverseBytewiseComparator Comparator = reverseBytewiseComparator{}
)

type bytewiseComparator struct{}

func (bytewiseComparator) Name() string { return "slicebridge.BytewiseComparator" }

func (bytewiseComparator) Compare(a, b ByteView) int { return a.Compare(b) }

func (bytewiseComparator) FindShortestSeparator(start []byte, limit ByteView) []byte {
	// 找到公共前缀长度
	n := min(len(start), limit.Len())
	diff := 0
	for diff < n && start[diff] == limit.data[diff] {
		diff++
	}
	if diff >= n {
		// 一个是另一个的前缀，无法缩短
		return nil
	}
	b := start[diff]
	if b < 0xff && b+1 < limit.data[diff] {
		sep := cloneBytes(start[:diff+1])
		sep[diff]++
		return sep
	}
	return nil
}

func (bytewiseComparator) FindShortSuccessor(key []byte) []byte {
	// 找到第一个可以加一的字节，截断其后的部分
	for i, b := range key {
		if b != 0xff {
			succ := cloneBytes(key[:i+1])
			succ[i]++
			return succ
		}
	}
	// 全是 0xff，保持不变
	return nil
}

type reverseBytewiseComparator struct{}

func (reverseBytewiseComparator) Name() string { return "slicebridge.ReverseBytewiseComparator" }

func (reverseBytewiseComparator) Compare(a, b ByteView) int { return -a.Compare(b) }

func (reverseBytewiseComparator) FindShortestSeparator(start []byte, limit ByteView) []byte {
	return nil
}

func (reverseBytewiseComparator) FindShortSuccessor(key []byte) []byte {
	return nil
}
