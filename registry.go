package slicebridge

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crypt0walker/SliceBridge/arena"
	"github.com/sirupsen/logrus"
)

// 句柄边界：调用方只持有整数句柄，注册表持有句柄对应的切片

var (
	//维护注册表名到实际注册表实例的映射
	registries = make(map[string]*Registry)
	//对registries操作加读写锁，以保证线程安全
	registriesMu sync.RWMutex

	// 所有注册表共用的句柄计数器，一个句柄只可能在签发它的注册表里解析成功
	nextHandle uint64
)

// Handle 是调用方持有的不透明句柄，0 永远不会被分配
type Handle uint64

// Registry 把句柄映射到切片
//
// 句柄单调递增且不复用，所以释放后的句柄不可能指向一个新切片。
// 锁只保护句柄表本身；同一个句柄上的读写不加锁，调用方必须保证
// 一个句柄同一时刻只被一个 goroutine 使用。
type Registry struct {
	name   string
	mu     sync.RWMutex
	slices map[Handle]*entry
	opts   RegistryOptions
	closed int32
	stats  registryStats
}

// 表中的一项，除 slice 以外的字段创建后不再修改
type entry struct {
	slice     Slice
	mode      Mode
	length    int
	ownedCap  int
	createdAt time.Time
}

type registryStats struct {
	created     int64 // 创建次数
	disposed    int64 // 释放次数
	invalidUses int64 // 使用无效句柄的次数
	ownedBytes  int64 // 存活的持有型切片占用的字节
	leaked      int64 // Close 时仍未释放的句柄数
}

// RegistryStats 是注册表统计信息的快照
type RegistryStats struct {
	Created     int64 `json:"created"`
	Disposed    int64 `json:"disposed"`
	Live        int   `json:"live"`
	InvalidUses int64 `json:"invalid_uses"`
	OwnedBytes  int64 `json:"owned_bytes"`
	Leaked      int64 `json:"leaked"`
}

// HandleInfo 描述一个存活句柄，字段都是创建时记录的
type HandleInfo struct {
	Handle    Handle    `json:"handle"`
	Mode      string    `json:"mode"`
	Length    int       `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}

// RegistryOptions 注册表配置
type RegistryOptions struct {
	Arena      arena.Arena // 持有型切片的分配器
	Comparator Comparator  // Compare 使用的比较器
	LeakReport bool        // Close 时是否逐个记录未释放的句柄
}

// DefaultRegistryOptions 返回默认配置
func DefaultRegistryOptions() RegistryOptions {
	return RegistryOptions{
		Arena:      arena.Heap,
		Comparator: BytewiseComparator,
		LeakReport: true,
	}
}

// RegistryOption 定义Registry的配置选项
type RegistryOption func(*RegistryOptions)

// WithRegistryArena 设置持有型切片的分配器
func WithRegistryArena(a arena.Arena) RegistryOption {
	return func(o *RegistryOptions) {
		o.Arena = a
	}
}

// WithComparator 设置比较器
func WithComparator(c Comparator) RegistryOption {
	return func(o *RegistryOptions) {
		o.Comparator = c
	}
}

// WithLeakReport 设置 Close 时是否记录泄漏的句柄
func WithLeakReport(enabled bool) RegistryOption {
	return func(o *RegistryOptions) {
		o.LeakReport = enabled
	}
}

// NewRegistry 创建注册表并以 name 注册到全局映射。
// 同名的旧注册表会被替换并关闭，它仍然存活的句柄按泄漏处理
func NewRegistry(name string, opts ...RegistryOption) *Registry {
	options := DefaultRegistryOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Arena == nil {
		options.Arena = arena.Heap
	}
	if options.Comparator == nil {
		options.Comparator = BytewiseComparator
	}

	r := &Registry{
		name:   name,
		slices: make(map[Handle]*entry),
		opts:   options,
	}

	registriesMu.Lock()
	old, exists := registries[name]
	registries[name] = r
	registriesMu.Unlock()

	if exists {
		logrus.Warnf("Registry with name %s already exists with %d live handles, will be replaced", name, old.Len())
		// Close 只在映射仍指向 old 时才删除，不会影响新注册表
		if err := old.Close(); err != nil {
			logrus.Errorf("close replaced registry %s: %v", name, err)
		}
	}
	logrus.Infof("Registry %s created, comparator=%s", name, options.Comparator.Name())

	return r
}

// GetRegistry 返回已注册的注册表，不存在时返回 nil
func GetRegistry(name string) *Registry {
	registriesMu.RLock()
	defer registriesMu.RUnlock()
	return registries[name]
}

// Name 返回注册表名
func (r *Registry) Name() string { return r.name }

// CreateFromText 拷贝 s 创建持有型切片
func (r *Registry) CreateFromText(s string) (Handle, error) {
	if err := r.open(); err != nil {
		return 0, err
	}
	return r.put(NewSliceFromString(s, WithArena(r.opts.Arena)))
}

// CreateFromArray 拷贝整个 data 创建持有型切片
func (r *Registry) CreateFromArray(data []byte) (Handle, error) {
	if err := r.open(); err != nil {
		return 0, err
	}
	return r.put(NewSlice(data, WithArena(r.opts.Arena)))
}

// CreateFromArrayAt 拷贝 data[offset:] 创建持有型切片
func (r *Registry) CreateFromArrayAt(data []byte, offset int) (Handle, error) {
	if err := r.open(); err != nil {
		return 0, err
	}
	s, err := NewSliceAt(data, offset, WithArena(r.opts.Arena))
	if err != nil {
		return 0, err
	}
	return r.put(s)
}

// CreateFromBuffer 从 buf 的 position 借用 length 字节
func (r *Registry) CreateFromBuffer(buf *Buffer, length int) (Handle, error) {
	if err := r.open(); err != nil {
		return 0, err
	}
	s, err := NewDirectSlice(buf, length)
	if err != nil {
		return 0, err
	}
	return r.put(s)
}

// CreateFromBufferToEnd 从 buf 的 position 借用到 limit
func (r *Registry) CreateFromBufferToEnd(buf *Buffer) (Handle, error) {
	if err := r.open(); err != nil {
		return 0, err
	}
	s, err := NewDirectSliceToEnd(buf)
	if err != nil {
		return 0, err
	}
	return r.put(s)
}

func (r *Registry) put(s Slice) (Handle, error) {
	e := &entry{
		slice:     s,
		mode:      s.Mode(),
		length:    s.Len(),
		createdAt: time.Now(),
	}
	if o, ok := s.(*OwnedSlice); ok {
		e.ownedCap = cap(o.buf)
	}

	r.mu.Lock()
	if atomic.LoadInt32(&r.closed) == 1 {
		r.mu.Unlock()
		s.Close()
		return 0, ErrRegistryClosed
	}
	h := Handle(atomic.AddUint64(&nextHandle, 1))
	r.slices[h] = e
	r.mu.Unlock()

	atomic.AddInt64(&r.stats.created, 1)
	atomic.AddInt64(&r.stats.ownedBytes, int64(e.ownedCap))
	logrus.WithFields(logrus.Fields{
		"registry": r.name,
		"handle":   h,
		"mode":     e.mode,
		"len":      e.length,
	}).Debug("slice created")
	return h, nil
}

// Lookup 返回句柄对应的切片
func (r *Registry) Lookup(h Handle) (Slice, error) {
	if err := r.open(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	e, ok := r.slices[h]
	r.mu.RUnlock()
	if !ok {
		atomic.AddInt64(&r.stats.invalidUses, 1)
		return nil, fmt.Errorf("handle %d: %w", h, ErrInvalidHandle)
	}
	return e.slice, nil
}

func (r *Registry) direct(h Handle) (*DirectSlice, error) {
	s, err := r.Lookup(h)
	if err != nil {
		return nil, err
	}
	d, ok := s.(*DirectSlice)
	if !ok {
		return nil, fmt.Errorf("handle %d is %s: %w", h, s.Mode(), ErrWrongMode)
	}
	return d, nil
}

// Size 返回切片长度，借用的缓冲失效后返回 ErrStaleBuffer
func (r *Registry) Size(h Handle) (int, error) {
	v, err := r.view(h)
	if err != nil {
		return 0, err
	}
	return v.Len(), nil
}

// IsEmpty 判断切片长度是否为 0，失效规则同 Size
func (r *Registry) IsEmpty(h Handle) (bool, error) {
	v, err := r.view(h)
	if err != nil {
		return false, err
	}
	return v.Empty(), nil
}

// view 经过关闭和代数检查后返回切片的视图
func (r *Registry) view(h Handle) (ByteView, error) {
	s, err := r.Lookup(h)
	if err != nil {
		return ByteView{}, err
	}
	return s.View()
}

// ToDisplayString 渲染切片内容，hex 为 true 时输出十六进制
func (r *Registry) ToDisplayString(h Handle, hex bool) (string, error) {
	s, err := r.Lookup(h)
	if err != nil {
		return "", err
	}
	return ToString(s, hex)
}

// Compare 用注册表的比较器比较两个句柄的内容
func (r *Registry) Compare(h, other Handle) (int, error) {
	a, b, err := r.pair(h, other)
	if err != nil {
		return 0, err
	}
	va, vb, err := views(a, b)
	if err != nil {
		return 0, err
	}
	return r.opts.Comparator.Compare(va, vb), nil
}

// StartsWith 判断 other 的内容是否为 h 的前缀
func (r *Registry) StartsWith(h, other Handle) (bool, error) {
	a, b, err := r.pair(h, other)
	if err != nil {
		return false, err
	}
	return StartsWith(a, b)
}

func (r *Registry) pair(h, other Handle) (Slice, Slice, error) {
	a, err := r.Lookup(h)
	if err != nil {
		return nil, nil, err
	}
	b, err := r.Lookup(other)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// ReadBytes 返回内容的拷贝，两种模式都支持
func (r *Registry) ReadBytes(h Handle) ([]byte, error) {
	s, err := r.Lookup(h)
	if err != nil {
		return nil, err
	}
	return s.Bytes()
}

// ReadAsBuffer 把借用型切片的当前窗口作为 Buffer 返回，不拷贝
func (r *Registry) ReadAsBuffer(h Handle) (*Buffer, error) {
	d, err := r.direct(h)
	if err != nil {
		return nil, err
	}
	return d.Data()
}

// ByteAt 返回借用型切片的第 offset 个字节
func (r *Registry) ByteAt(h Handle, offset int) (byte, error) {
	d, err := r.direct(h)
	if err != nil {
		return 0, err
	}
	return d.At(offset)
}

// Clear 把借用型切片的长度置 0
func (r *Registry) Clear(h Handle) error {
	d, err := r.direct(h)
	if err != nil {
		return err
	}
	return d.Clear()
}

// RemovePrefix 把借用型切片的起点前移 n 字节
func (r *Registry) RemovePrefix(h Handle, n int) error {
	d, err := r.direct(h)
	if err != nil {
		return err
	}
	return d.RemovePrefix(n)
}

// Dispose 释放句柄，持有型切片的存储归还给 arena。
// 同一个句柄第二次 Dispose 返回 ErrInvalidHandle
func (r *Registry) Dispose(h Handle) error {
	r.mu.Lock()
	e, ok := r.slices[h]
	if ok {
		delete(r.slices, h)
	}
	r.mu.Unlock()
	if !ok {
		atomic.AddInt64(&r.stats.invalidUses, 1)
		return fmt.Errorf("dispose handle %d: %w", h, ErrInvalidHandle)
	}
	return r.release(h, e)
}

// release 关闭已经从表中摘除的切片
func (r *Registry) release(h Handle, e *entry) error {
	atomic.AddInt64(&r.stats.disposed, 1)
	atomic.AddInt64(&r.stats.ownedBytes, -int64(e.ownedCap))
	if err := e.slice.Close(); err != nil {
		return fmt.Errorf("dispose handle %d: %w", h, err)
	}
	logrus.WithFields(logrus.Fields{
		"registry": r.name,
		"handle":   h,
		"mode":     e.mode,
	}).Debug("slice disposed")
	return nil
}

// Len 返回存活句柄数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slices)
}

// Handles 返回存活句柄的元数据，按句柄升序
func (r *Registry) Handles() []HandleInfo {
	r.mu.RLock()
	infos := make([]HandleInfo, 0, len(r.slices))
	for h, e := range r.slices {
		infos = append(infos, HandleInfo{
			Handle:    h,
			Mode:      e.mode.String(),
			Length:    e.length,
			CreatedAt: e.createdAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Handle < infos[j].Handle })
	return infos
}

// Stats 返回统计信息
func (r *Registry) Stats() RegistryStats {
	return RegistryStats{
		Created:     atomic.LoadInt64(&r.stats.created),
		Disposed:    atomic.LoadInt64(&r.stats.disposed),
		Live:        r.Len(),
		InvalidUses: atomic.LoadInt64(&r.stats.invalidUses),
		OwnedBytes:  atomic.LoadInt64(&r.stats.ownedBytes),
		Leaked:      atomic.LoadInt64(&r.stats.leaked),
	}
}

func (r *Registry) open() error {
	if atomic.LoadInt32(&r.closed) == 1 {
		return ErrRegistryClosed
	}
	return nil
}

// Close 关闭注册表，释放所有仍然存活的句柄并把它们记为泄漏
func (r *Registry) Close() error {
	if !atomic.CompareAndSwapInt32(&r.closed, 0, 1) {
		return nil
	}

	r.mu.Lock()
	leaked := r.slices
	r.slices = make(map[Handle]*entry)
	r.mu.Unlock()

	var errs []error
	for h, e := range leaked {
		atomic.AddInt64(&r.stats.leaked, 1)
		if r.opts.LeakReport {
			logrus.Warnf("[SliceBridge] registry %s: handle %d (%s, %d bytes) was never disposed", r.name, h, e.mode, e.length)
		}
		if err := r.release(h, e); err != nil {
			errs = append(errs, err)
		}
	}

	// 从全局映射中移除，同名的新注册表不受影响
	registriesMu.Lock()
	if registries[r.name] == r {
		delete(registries, r.name)
	}
	registriesMu.Unlock()

	logrus.Infof("[SliceBridge] closed registry [%s], leaked=%d", r.name, len(leaked))
	return errors.Join(errs...)
}

// ListRegistries 返回所有注册表的名称
func ListRegistries() []string {
	registriesMu.RLock()
	defer registriesMu.RUnlock()

	names := make([]string, 0, len(registries))
	for name := range registries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DestroyRegistry 关闭并移除指定名称的注册表
func DestroyRegistry(name string) bool {
	registriesMu.RLock()
	r, exists := registries[name]
	registriesMu.RUnlock()

	if !exists {
		return false
	}
	r.Close()
	logrus.Infof("[SliceBridge] destroyed registry [%s]", name)
	return true
}

// DestroyAllRegistries 关闭并移除所有注册表
func DestroyAllRegistries() {
	registriesMu.RLock()
	all := make([]*Registry, 0, len(registries))
	for _, r := range registries {
		all = append(all, r)
	}
	registriesMu.RUnlock()

	for _, r := range all {
		r.Close()
		logrus.Infof("[SliceBridge] destroyed registry [%s]", r.name)
	}
}
