// 基于标准库 list 实现的空闲缓冲 LRU 池
package arena

import (
	"container/list"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Pool 按规格（2 的幂）复用被释放的缓冲，空闲总量受 MaxBytes 限制
type Pool struct {
	mu        sync.Mutex
	maxBytes  int64 // 空闲缓冲最大容量
	usedBytes int64 // 当前空闲缓冲占用
	minClass  int
	maxClass  int
	ll        *list.List         // 所有空闲缓冲，Front 为最近归还
	classes   map[int]*list.List // 规格到该规格空闲缓冲的映射，元素值为 ll 中的节点
	onEvicted func(buf []byte)   // 某个缓冲被淘汰时的回调，可为nil
	stopCh    chan struct{}
	closed    int32
	stats     poolStats
}

// 池中的一个空闲缓冲
// 同时记录它在规格链表里的节点，淘汰时才能从两个链表中一起删除
type poolEntry struct {
	class     int
	buf       []byte
	classElem *list.Element
}

type poolStats struct {
	allocs    int64 // 分配次数
	reuses    int64 // 命中空闲缓冲的次数
	frees     int64 // 归还次数
	drops     int64 // 不符合规格而直接丢弃的次数
	evictions int64 // 因超出容量被淘汰的次数
}

// PoolStats 是 Pool 统计信息的快照
type PoolStats struct {
	Allocs    int64
	Reuses    int64
	Frees     int64
	Drops     int64
	Evictions int64
	IdleBytes int64
	IdleBufs  int
}

var _ Arena = (*Pool)(nil)

// NewPool 创建一个缓冲池
func NewPool(opts Options) *Pool {
	def := DefaultOptions()
	if opts.MinClass <= 0 {
		opts.MinClass = def.MinClass
	}
	if opts.MaxClass < opts.MinClass {
		opts.MaxClass = def.MaxClass
	}
	p := &Pool{
		maxBytes:  opts.MaxBytes,
		minClass:  roundUpPow2(opts.MinClass),
		maxClass:  opts.MaxClass,
		ll:        list.New(),
		classes:   make(map[int]*list.List),
		onEvicted: opts.OnEvicted,
		stopCh:    make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go p.cleanupLoop(opts.CleanupInterval)
	}
	return p
}

// Alloc 分配长度为 n 的缓冲，优先复用同规格的空闲缓冲
func (p *Pool) Alloc(n int) []byte {
	if n < 0 {
		panic("arena: negative alloc size")
	}
	atomic.AddInt64(&p.stats.allocs, 1)

	class := p.classFor(n)
	if class == 0 {
		// 超过最大规格，不进入池
		return make([]byte, n)
	}

	p.mu.Lock()
	if l, ok := p.classes[class]; ok && l.Len() > 0 {
		elem := l.Remove(l.Front()).(*list.Element)
		entry := p.ll.Remove(elem).(*poolEntry)
		p.usedBytes -= int64(entry.class)
		p.mu.Unlock()
		atomic.AddInt64(&p.stats.reuses, 1)
		return entry.buf[:n]
	}
	p.mu.Unlock()

	return make([]byte, n, class)
}

// Free 归还缓冲。缓冲会被清零，防止下一个持有者读到上一个持有者的数据
func (p *Pool) Free(buf []byte) {
	atomic.AddInt64(&p.stats.frees, 1)
	class := cap(buf)
	if atomic.LoadInt32(&p.closed) == 1 || !p.pooled(class) {
		atomic.AddInt64(&p.stats.drops, 1)
		return
	}
	buf = buf[:class]
	clear(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	entry := &poolEntry{class: class, buf: buf}
	elem := p.ll.PushFront(entry)
	l, ok := p.classes[class]
	if !ok {
		l = list.New()
		p.classes[class] = l
	}
	entry.classElem = l.PushFront(elem)
	p.usedBytes += int64(class)

	for p.maxBytes > 0 && p.usedBytes > p.maxBytes && p.ll.Len() > 0 {
		p.removeElement(p.ll.Back())
		atomic.AddInt64(&p.stats.evictions, 1)
	}
	if p.maxBytes <= 0 {
		// 没有预算就不保留任何空闲缓冲
		p.removeElement(elem)
		atomic.AddInt64(&p.stats.evictions, 1)
	}
}

// removeElement 从两个链表中删除空闲缓冲，调用前必须持有锁
func (p *Pool) removeElement(elem *list.Element) {
	entry := elem.Value.(*poolEntry)
	p.ll.Remove(elem)
	if l, ok := p.classes[entry.class]; ok {
		l.Remove(entry.classElem)
		if l.Len() == 0 {
			delete(p.classes, entry.class)
		}
	}
	p.usedBytes -= int64(entry.class)
	if p.onEvicted != nil {
		p.onEvicted(entry.buf)
	}
}

// Purge 丢弃所有空闲缓冲
func (p *Pool) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.ll.Len()
	for p.ll.Len() > 0 {
		p.removeElement(p.ll.Back())
	}
	if n > 0 {
		logrus.Debugf("arena: purged %d idle buffers", n)
	}
}

func (p *Pool) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Purge()
		case <-p.stopCh:
			return
		}
	}
}

// Close 停止后台清理并清空空闲缓冲，之后归还的缓冲直接丢弃
func (p *Pool) Close() {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	close(p.stopCh)
	p.Purge()
	s := p.Stats()
	logrus.Infof("arena: pool closed, allocs=%d reuses=%d evictions=%d", s.Allocs, s.Reuses, s.Evictions)
}

// Stats 返回统计信息
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	idle, bufs := p.usedBytes, p.ll.Len()
	p.mu.Unlock()
	return PoolStats{
		Allocs:    atomic.LoadInt64(&p.stats.allocs),
		Reuses:    atomic.LoadInt64(&p.stats.reuses),
		Frees:     atomic.LoadInt64(&p.stats.frees),
		Drops:     atomic.LoadInt64(&p.stats.drops),
		Evictions: atomic.LoadInt64(&p.stats.evictions),
		IdleBytes: idle,
		IdleBufs:  bufs,
	}
}

// classFor 返回 n 对应的规格，0 表示不进入池
func (p *Pool) classFor(n int) int {
	if n <= p.minClass {
		return p.minClass
	}
	class := roundUpPow2(n)
	if class > p.maxClass {
		return 0
	}
	return class
}

func (p *Pool) pooled(class int) bool {
	return class >= p.minClass && class <= p.maxClass && class&(class-1) == 0
}

func roundUpPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
