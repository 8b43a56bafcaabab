// Package arena 为持有型切片提供底层字节存储的分配与回收
package arena

import "time"

// Arena 定义了字节缓冲的分配器接口
// Alloc 返回的缓冲由调用方独占，调用方必须且只能 Free 一次
type Arena interface {
	Alloc(n int) []byte
	// Free 归还一个由 Alloc 得到的缓冲，归还后调用方不得再访问它
	Free(buf []byte)
}

// Options 缓冲池配置选项
type Options struct {
	MaxBytes        int64         // 空闲缓冲的最大总字节数，超出后按 LRU 淘汰
	MinClass        int           // 最小的规格（字节），小于它的请求按它分配
	MaxClass        int           // 最大的规格，超过它的缓冲不进入池
	CleanupInterval time.Duration // 定期清空空闲缓冲的间隔，0 表示不清理
	OnEvicted       func(buf []byte)
}

// DefaultOptions 返回默认配置
func DefaultOptions() Options {
	return Options{
		MaxBytes: 8 << 20, // 8MB
		MinClass: 64,
		MaxClass: 1 << 20,
	}
}

// Heap 是直接使用 Go 堆的分配器，Free 不做任何事，由 GC 负责回收
var Heap Arena = heapArena{}

type heapArena struct{}

func (heapArena) Alloc(n int) []byte {
	return make([]byte, n)
}

func (heapArena) Free(buf []byte) {}
