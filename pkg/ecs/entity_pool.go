// Package ecs 提供弹幕实体的结构数组（SoA）存储
//
// EntityPool 把每个字段（位置、旋转、速度……）存放在独立的连续切片中，
// 活跃实体始终占据 [0, ActiveCount()) 的前缀区间。
// 销毁是延迟的：Destroy 只把下标加入队列，FlushDestroyed 才真正通过
// "与末尾交换"压缩活跃区间。
package ecs

import (
	"iter"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/components"
)

// DefaultCapacity 未指定容量时的初始容量
const DefaultCapacity = 64

// PoolOption 配置 EntityPool
type PoolOption func(*EntityPool)

// WithFixedCapacity 禁用扩容：池满时 Get 返回 ErrPoolExhausted
func WithFixedCapacity() PoolOption {
	return func(p *EntityPool) { p.fixed = true }
}

// WithScale 设置计算渲染变换矩阵时使用的缩放倍数
func WithScale(scale float32) PoolOption {
	return func(p *EntityPool) { p.scale = scale }
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) PoolOption {
	return func(p *EntityPool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// EntityPool 固定容量（可倍增）的弹幕实体结构数组存储
//
// 池不是并发安全的：它只属于一个 EntitySet，由该集合的更新管线独占访问。
// 数据并行阶段通过 Columns() 拿到切片，各任务只读写自己的下标区间。
type EntityPool struct {
	// 实体数据列（按下标索引）
	positions      []components.Vec2
	rotations      []float32
	speeds         []float32
	angularSpeeds  []float32
	colors         []components.Color
	ages           []float32
	initial        []components.BulletState
	oldPositions   []components.Vec2
	collisionMasks []uint32
	transforms     []components.Matrix4

	// 下标簿记
	generations  []uint32 // 每个下标的世代号，长度始终等于 capacity
	pending      []bool   // 是否已在销毁队列中
	destroyQueue []uint32 // 待删除的下标

	active    int
	capacity  int
	fixed     bool
	disposed  bool
	iterating int
	scale     float32
	logger    *zap.Logger
}

// NewEntityPool 创建一个新的实体池
//
// 参数:
//   - capacity: 初始容量（<=0 时使用 DefaultCapacity）
//   - opts: 可选配置
//
// 返回:
//   - *EntityPool: 实体池实例
func NewEntityPool(capacity int, opts ...PoolOption) *EntityPool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &EntityPool{
		scale:  1,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.allocate(capacity)
	for i := range p.generations {
		p.generations[i] = 1
	}
	return p
}

// allocate 分配（或重新分配）所有数据列，只复制 [0, active)
func (p *EntityPool) allocate(capacity int) {
	p.positions = growColumn(p.positions, p.active, capacity)
	p.rotations = growColumn(p.rotations, p.active, capacity)
	p.speeds = growColumn(p.speeds, p.active, capacity)
	p.angularSpeeds = growColumn(p.angularSpeeds, p.active, capacity)
	p.colors = growColumn(p.colors, p.active, capacity)
	p.ages = growColumn(p.ages, p.active, capacity)
	p.initial = growColumn(p.initial, p.active, capacity)
	p.oldPositions = growColumn(p.oldPositions, p.active, capacity)
	p.collisionMasks = growColumn(p.collisionMasks, p.active, capacity)
	p.transforms = growColumn(p.transforms, p.active, capacity)
	p.pending = growColumn(p.pending, p.active, capacity)
	// 世代号需要完整保留：空闲下标的旧句柄在下标被复用后也必须保持过期
	p.generations = growColumn(p.generations, len(p.generations), capacity)
	p.capacity = capacity
}

func growColumn[T any](s []T, keep, capacity int) []T {
	ns := make([]T, capacity)
	copy(ns, s[:keep])
	return ns
}

// ActiveCount 返回活跃实体数量
func (p *EntityPool) ActiveCount() int { return p.active }

// Capacity 返回当前容量
func (p *EntityPool) Capacity() int { return p.capacity }

// PendingCount 返回等待 FlushDestroyed 的实体数量
func (p *EntityPool) PendingCount() int { return len(p.destroyQueue) }

// Disposed 报告池是否已释放
func (p *EntityPool) Disposed() bool { return p.disposed }

// FixedCapacity 报告池是否禁用了扩容
func (p *EntityPool) FixedCapacity() bool { return p.fixed }

// Scale 返回渲染变换使用的缩放倍数
func (p *EntityPool) Scale() float32 { return p.scale }

// Get 在活跃区间末尾追加一个实体
//
// 池满时倍增容量；扩容会使所有现存句柄失效。
// 固定容量模式下池满返回 ErrPoolExhausted，不会静默丢弃请求。
//
// 返回的句柄在下一次影响其下标的压缩或扩容之前有效。
func (p *EntityPool) Get(state components.BulletState) (EntityHandle, error) {
	if p.disposed {
		return EntityHandle{}, ErrPoolDisposed
	}
	if err := p.reserve(1); err != nil {
		return EntityHandle{}, err
	}
	return p.append(state), nil
}

// GetBatch 批量创建实体（全部成功或全部失败）
//
// 最多扩容一次以容纳所有实体。
func (p *EntityPool) GetBatch(states []components.BulletState) ([]EntityHandle, error) {
	if p.disposed {
		return nil, ErrPoolDisposed
	}
	if len(states) == 0 {
		return nil, nil
	}
	if err := p.reserve(len(states)); err != nil {
		return nil, err
	}
	handles := make([]EntityHandle, len(states))
	for i := range states {
		handles[i] = p.append(states[i])
	}
	return handles, nil
}

// reserve 确保还能再容纳 n 个实体
func (p *EntityPool) reserve(n int) error {
	need := p.active + n
	if need <= p.capacity {
		return nil
	}
	if p.fixed {
		return eris.Wrapf(ErrPoolExhausted, "need %d slots, capacity %d", need, p.capacity)
	}
	newCap := p.capacity * 2
	for newCap < need {
		newCap *= 2
	}
	p.grow(newCap)
	return nil
}

// grow 重新分配所有数据列并提升全部下标的世代号
func (p *EntityPool) grow(newCap int) {
	oldCap := p.capacity
	p.allocate(newCap)
	for i := 0; i < oldCap; i++ {
		p.generations[i]++
	}
	for i := oldCap; i < newCap; i++ {
		p.generations[i] = 1
	}
	p.logger.Debug("[EntityPool] capacity grown",
		zap.Int("from", oldCap),
		zap.Int("to", newCap),
		zap.Int("active", p.active))
}

func (p *EntityPool) append(state components.BulletState) EntityHandle {
	i := p.active
	p.positions[i] = state.Position
	p.rotations[i] = state.Rotation
	p.speeds[i] = state.Speed
	p.angularSpeeds[i] = state.AngularSpeed
	p.colors[i] = state.Color
	p.ages[i] = 0
	p.initial[i] = state
	p.oldPositions[i] = state.Position
	p.collisionMasks[i] = 0
	p.transforms[i] = components.TRS(state.Position, state.Rotation, p.scale)
	p.pending[i] = false
	p.active++
	return EntityHandle{Slot: uint32(i), Generation: p.generations[i]}
}

// check 校验句柄
func (p *EntityPool) check(h EntityHandle) error {
	if p.disposed {
		return ErrPoolDisposed
	}
	if int(h.Slot) >= p.active || p.generations[h.Slot] != h.Generation {
		return eris.Wrapf(ErrStaleHandle, "%s", h)
	}
	return nil
}

// IsValid 检查句柄是否仍指向活跃区间内的同一个实体
func (p *EntityPool) IsValid(h EntityHandle) bool {
	return p.check(h) == nil
}

// HandleAt 返回活跃区间内某个下标当前的句柄
func (p *EntityPool) HandleAt(slot int) (EntityHandle, error) {
	if p.disposed {
		return EntityHandle{}, ErrPoolDisposed
	}
	if slot < 0 || slot >= p.active {
		return EntityHandle{}, eris.Wrapf(ErrStaleHandle, "slot %d outside active range [0, %d)", slot, p.active)
	}
	return EntityHandle{Slot: uint32(slot), Generation: p.generations[slot]}, nil
}

// Destroy 请求销毁实体
//
// 实体不会立即移除：它保留在活跃区间内，并继续接收每帧更新，
// 直到下一次 FlushDestroyed。对同一句柄重复销毁返回 ErrStaleHandle。
func (p *EntityPool) Destroy(h EntityHandle) error {
	if err := p.check(h); err != nil {
		return err
	}
	if p.pending[h.Slot] {
		return eris.Wrapf(ErrStaleHandle, "%s already destroyed", h)
	}
	p.pending[h.Slot] = true
	p.destroyQueue = append(p.destroyQueue, h.Slot)
	return nil
}

// DestroyAt 按下标请求销毁（供遍历活跃区间的修改器使用）
// 已在队列中的下标直接忽略
func (p *EntityPool) DestroyAt(slot int) error {
	if p.disposed {
		return ErrPoolDisposed
	}
	if slot < 0 || slot >= p.active {
		return eris.Wrapf(ErrStaleHandle, "slot %d outside active range [0, %d)", slot, p.active)
	}
	if p.pending[slot] {
		return nil
	}
	p.pending[slot] = true
	p.destroyQueue = append(p.destroyQueue, uint32(slot))
	return nil
}

// DestroyAll 把所有尚未排队的活跃实体加入销毁队列
//
// 返回:
//   - int: 新加入队列的数量
func (p *EntityPool) DestroyAll() int {
	if p.disposed {
		return 0
	}
	n := 0
	for i := 0; i < p.active; i++ {
		if !p.pending[i] {
			p.pending[i] = true
			p.destroyQueue = append(p.destroyQueue, uint32(i))
			n++
		}
	}
	return n
}

// IsPendingDestroy 报告实体是否已请求销毁但尚未被压缩移除
func (p *EntityPool) IsPendingDestroy(h EntityHandle) (bool, error) {
	if err := p.check(h); err != nil {
		return false, err
	}
	return p.pending[h.Slot], nil
}

// FlushDestroyed 压缩活跃区间，移除所有排队销毁的实体
//
// 按下标降序处理：每个被删除的下标与当前最后一个活跃下标交换数据，然后 active--。
// 被删除下标和被搬走的原末尾下标的世代号都会提升，所以两者的旧句柄都会失效。
//
// 每帧必须恰好执行一次，在上一帧句柄的所有读取完成之后。
//
// 返回:
//   - int: 移除的实体数量
//   - error: 有迭代正在进行时返回 ErrPoolBusy
func (p *EntityPool) FlushDestroyed() (int, error) {
	if p.disposed {
		return 0, ErrPoolDisposed
	}
	if p.iterating > 0 {
		return 0, ErrPoolBusy
	}
	if len(p.destroyQueue) == 0 {
		return 0, nil
	}

	// 降序处理保证：处理下标 s 时，所有大于 s 的排队下标都已移除，
	// 因此当前末尾的实体一定不在队列中
	slices.Sort(p.destroyQueue)
	removed := 0
	for i := len(p.destroyQueue) - 1; i >= 0; i-- {
		slot := int(p.destroyQueue[i])
		last := p.active - 1
		if slot != last {
			p.move(last, slot)
			p.generations[last]++
		}
		p.generations[slot]++
		p.pending[slot] = false
		p.pending[last] = false
		p.active--
		removed++
	}
	p.destroyQueue = p.destroyQueue[:0]
	return removed, nil
}

// move 把 src 下标的全部数据复制到 dst
func (p *EntityPool) move(src, dst int) {
	p.positions[dst] = p.positions[src]
	p.rotations[dst] = p.rotations[src]
	p.speeds[dst] = p.speeds[src]
	p.angularSpeeds[dst] = p.angularSpeeds[src]
	p.colors[dst] = p.colors[src]
	p.ages[dst] = p.ages[src]
	p.initial[dst] = p.initial[src]
	p.oldPositions[dst] = p.oldPositions[src]
	p.collisionMasks[dst] = p.collisionMasks[src]
	p.transforms[dst] = p.transforms[src]
}

// ForEachActive 惰性遍历活跃区间 [0, ActiveCount())
//
// 区间上界在遍历开始时确定，遍历中新建的实体不会被访问。
// 遍历期间 FlushDestroyed 返回 ErrPoolBusy；遍历中途扩容会使已产出的句柄失效。
func (p *EntityPool) ForEachActive() iter.Seq[EntityHandle] {
	return func(yield func(EntityHandle) bool) {
		if p.disposed {
			return
		}
		p.iterating++
		defer func() { p.iterating-- }()

		n := p.active
		for i := 0; i < n; i++ {
			if !yield(EntityHandle{Slot: uint32(i), Generation: p.generations[i]}) {
				return
			}
		}
	}
}

// Dispose 释放所有数据列
// 之后的所有操作返回 ErrPoolDisposed
func (p *EntityPool) Dispose() {
	if p.disposed {
		return
	}
	p.positions = nil
	p.rotations = nil
	p.speeds = nil
	p.angularSpeeds = nil
	p.colors = nil
	p.ages = nil
	p.initial = nil
	p.oldPositions = nil
	p.collisionMasks = nil
	p.transforms = nil
	p.generations = nil
	p.pending = nil
	p.destroyQueue = nil
	p.active = 0
	p.capacity = 0
	p.disposed = true
}
