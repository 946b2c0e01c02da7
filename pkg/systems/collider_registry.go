package systems

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/components"
)

// ColliderID 障碍物碰撞体标识
type ColliderID uint64

type collider struct {
	id     ColliderID
	bounds components.Bounds
	layer  int
}

// ColliderRegistry 障碍物碰撞体注册表（两级 AABB 粗检测）
//
// 第一级：所有障碍物的聚合包围盒，子弹扫掠盒不与之相交则直接返回 0。
// 第二级：每个图层一个包围盒列表，只扫描全局图层掩码中存在的图层，
// 每个图层命中一次即可设置对应的位。
//
// 注册/注销是 O(1) 的；Rebuild 每帧执行一次，O(n)。
// Rebuild 之后到下一次修改之前，Test 可被多个 goroutine 并发调用。
type ColliderRegistry struct {
	colliders []collider
	index     map[ColliderID]int
	nextID    ColliderID

	// Rebuild 产物（只读）
	aggregate components.Bounds
	layers    [components.MaxLayers][]components.Bounds
	layerMask uint32

	frozen atomic.Bool
	dirty  bool
	logger *zap.Logger
}

// NewColliderRegistry 创建碰撞体注册表
//
// 参数:
//   - logger: 日志记录器（nil 时不输出日志）
func NewColliderRegistry(logger *zap.Logger) *ColliderRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColliderRegistry{
		index:     make(map[ColliderID]int),
		aggregate: components.EmptyBounds(),
		logger:    logger,
	}
}

func validLayer(layer int) bool {
	return layer >= 0 && layer < components.MaxLayers
}

// Register 注册一个障碍物碰撞体
//
// 参数:
//   - bounds: 碰撞体包围盒
//   - layer: 碰撞图层（0-31）
//
// 返回:
//   - ColliderID: 碰撞体 ID，用于注销和更新
//   - error: 图层非法返回 ErrInvalidLayer；帧运行期间返回 ErrRegistryFrozen
func (r *ColliderRegistry) Register(bounds components.Bounds, layer int) (ColliderID, error) {
	if r.frozen.Load() {
		return 0, ErrRegistryFrozen
	}
	if !validLayer(layer) {
		return 0, eris.Wrapf(ErrInvalidLayer, "layer %d", layer)
	}
	r.nextID++
	id := r.nextID
	r.index[id] = len(r.colliders)
	r.colliders = append(r.colliders, collider{id: id, bounds: bounds, layer: layer})
	r.dirty = true
	return id, nil
}

// Unregister 注销障碍物碰撞体（与末尾交换删除）
func (r *ColliderRegistry) Unregister(id ColliderID) error {
	if r.frozen.Load() {
		return ErrRegistryFrozen
	}
	i, ok := r.index[id]
	if !ok {
		return eris.Wrapf(ErrUnknownCollider, "collider %d", id)
	}
	last := len(r.colliders) - 1
	if i != last {
		r.colliders[i] = r.colliders[last]
		r.index[r.colliders[i].id] = i
	}
	r.colliders = r.colliders[:last]
	delete(r.index, id)
	r.dirty = true
	return nil
}

// UpdateBounds 更新移动障碍物的包围盒
func (r *ColliderRegistry) UpdateBounds(id ColliderID, bounds components.Bounds) error {
	if r.frozen.Load() {
		return ErrRegistryFrozen
	}
	i, ok := r.index[id]
	if !ok {
		return eris.Wrapf(ErrUnknownCollider, "collider %d", id)
	}
	r.colliders[i].bounds = bounds
	r.dirty = true
	return nil
}

// Rebuild 从头重建聚合包围盒、各图层列表和全局图层掩码
func (r *ColliderRegistry) Rebuild() {
	for l := range r.layers {
		r.layers[l] = r.layers[l][:0]
	}
	agg := components.EmptyBounds()
	var mask uint32
	for _, c := range r.colliders {
		if c.bounds.IsEmpty() {
			continue
		}
		r.layers[c.layer] = append(r.layers[c.layer], c.bounds)
		agg = agg.Union(c.bounds)
		mask |= 1 << uint(c.layer)
	}
	r.aggregate = agg
	r.layerMask = mask

	if r.dirty {
		r.logger.Debug("[ColliderRegistry] rebuilt",
			zap.Int("colliders", len(r.colliders)),
			zap.Uint32("layerMask", mask))
		r.dirty = false
	}
}

// Freeze 冻结注册表，之后的修改返回 ErrRegistryFrozen
func (r *ColliderRegistry) Freeze() { r.frozen.Store(true) }

// Thaw 解冻注册表
func (r *ColliderRegistry) Thaw() { r.frozen.Store(false) }

// Frozen 报告注册表是否处于冻结状态
func (r *ColliderRegistry) Frozen() bool { return r.frozen.Load() }

// Test 查询扫掠包围盒命中的图层掩码
//
// 只是 AABB 粗检测，不计算接触点。
//
// 返回:
//   - uint32: 至少有一个障碍物与 swept 相交的图层位掩码
func (r *ColliderRegistry) Test(swept components.Bounds) uint32 {
	if r.layerMask == 0 || !swept.Intersects(r.aggregate) {
		return 0
	}
	var hits uint32
	for l := 0; l < components.MaxLayers; l++ {
		bit := uint32(1) << uint(l)
		if r.layerMask&bit == 0 {
			continue
		}
		for _, b := range r.layers[l] {
			if swept.Intersects(b) {
				hits |= bit
				break
			}
		}
	}
	return hits
}

// Count 返回已注册的碰撞体数量
func (r *ColliderRegistry) Count() int { return len(r.colliders) }

// LayerMask 返回上次 Rebuild 得到的全局图层掩码
func (r *ColliderRegistry) LayerMask() uint32 { return r.layerMask }

// Aggregate 返回上次 Rebuild 得到的聚合包围盒
func (r *ColliderRegistry) Aggregate() components.Bounds { return r.aggregate }
