package game

import (
	"context"
	"io/fs"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/config"
	"github.com/decker502/danmaku/pkg/ecs"
	"github.com/decker502/danmaku/pkg/systems"
)

// ManagerOption 配置 Manager
type ManagerOption func(*Manager)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRenderBatchSize 设置单个绘制批次的实例数上限（覆盖配置）
// 超过 systems.DefaultMaxBatchSize 的值被截断
func WithRenderBatchSize(n int) ManagerOption {
	return func(m *Manager) { m.renderBatchSize = min(n, systems.DefaultMaxBatchSize) }
}

// WithScriptFS 设置加载 Lua 修改器脚本的文件系统（默认读取磁盘）
func WithScriptFS(fsys fs.FS) ManagerOption {
	return func(m *Manager) { m.scripts = fsys }
}

// FrameStats 单帧统计
type FrameStats struct {
	Frame            uint64
	Sets             int
	Active           int // 压缩后的活跃实体总数
	Destroyed        int
	Colliding        int
	ModifierFailures int
	Duration         time.Duration
	OverBudget       bool
}

// Manager 弹幕模拟的帧驱动器
//
// 每帧流程：
// 1. 重建并冻结碰撞体注册表
// 2. 所有集合的管线并发运行
// 3. 汇合（帧屏障）后解冻注册表
// 4. Render 在屏障之后读取所有实体池
//
// Tick、Render、CreateSet、LoadSets 和 Close 由 frameMu 串行化。
type Manager struct {
	frameMu sync.Mutex

	// obstacleMu 保护注册表的修改与重建
	obstacleMu sync.Mutex

	cfg             config.SimulationConfig
	registry        *systems.ColliderRegistry
	pipeline        *systems.Pipeline
	batcher         *systems.RenderBatcher
	renderBatchSize int
	scripts         fs.FS

	sets   []*EntitySet
	byName map[string]*EntitySet
	frame  uint64
	closed bool

	logger *zap.Logger
}

// NewManager 创建帧驱动器
//
// 参数:
//   - cfg: 模拟配置
//   - opts: 可选配置
func NewManager(cfg config.SimulationConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:             cfg,
		renderBatchSize: cfg.RenderBatchSize,
		byName:          make(map[string]*EntitySet),
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registry = systems.NewColliderRegistry(m.logger)
	m.pipeline = systems.NewPipeline(systems.PipelineConfig{
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
	}, m.registry, m.logger)
	m.batcher = systems.NewRenderBatcher(m.renderBatchSize)

	m.logger.Info("[Manager] initialized",
		zap.Int("batchSize", cfg.BatchSize),
		zap.Int("workers", cfg.Workers),
		zap.Int("renderBatchSize", m.batcher.MaxBatch()),
		zap.Duration("frameBudget", cfg.FrameBudget))
	return m
}

// CreateSet 创建弹幕集合
//
// 参数:
//   - name: 集合名称（唯一）
//   - cfg: 渲染配置（无效时返回 components.ErrInvalidRenderConfig）
//   - opts: 可选配置
func (m *Manager) CreateSet(name string, cfg components.RenderConfig, opts ...SetOption) (*EntitySet, error) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	return m.createSet(name, cfg, opts...)
}

func (m *Manager) createSet(name string, cfg components.RenderConfig, opts ...SetOption) (*EntitySet, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrapf(err, "create set %q", name)
	}
	if existing, ok := m.byName[name]; ok && !existing.Disposed() {
		return nil, eris.Wrapf(ErrDuplicateSet, "%q", name)
	}

	o := setOptions{capacity: m.cfg.InitialCapacity, fixed: m.cfg.FixedCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	poolOpts := []ecs.PoolOption{ecs.WithLogger(m.logger), ecs.WithScale(cfg.EffectiveScale())}
	if o.fixed {
		poolOpts = append(poolOpts, ecs.WithFixedCapacity())
	}
	set := &EntitySet{
		name: name,
		cfg:  cfg,
		pool: ecs.NewEntityPool(o.capacity, poolOpts...),
		mods: o.modifiers,
	}
	m.sets = append(m.sets, set)
	m.byName[name] = set

	m.logger.Debug("[Manager] set created",
		zap.String("name", name),
		zap.Int("capacity", set.pool.Capacity()),
		zap.Bool("fixed", o.fixed),
		zap.Int("modifiers", len(o.modifiers)))
	return set, nil
}

// Set 按名称查找集合
func (m *Manager) Set(name string) (*EntitySet, bool) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	s, ok := m.byName[name]
	if !ok || s.Disposed() {
		return nil, false
	}
	return s, true
}

// Sets 返回所有未释放的集合（按创建顺序）
func (m *Manager) Sets() []*EntitySet {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	out := make([]*EntitySet, 0, len(m.sets))
	for _, s := range m.sets {
		if !s.Disposed() {
			out = append(out, s)
		}
	}
	return out
}

// Registry 返回碰撞体注册表（只读查询用）
func (m *Manager) Registry() *systems.ColliderRegistry { return m.registry }

// Frame 返回已执行的帧数
func (m *Manager) Frame() uint64 {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	return m.frame
}

// RegisterCollider 注册障碍物碰撞体
// Tick 运行期间返回 systems.ErrRegistryFrozen
func (m *Manager) RegisterCollider(bounds components.Bounds, layer int) (systems.ColliderID, error) {
	m.obstacleMu.Lock()
	defer m.obstacleMu.Unlock()
	return m.registry.Register(bounds, layer)
}

// UnregisterCollider 注销障碍物碰撞体
func (m *Manager) UnregisterCollider(id systems.ColliderID) error {
	m.obstacleMu.Lock()
	defer m.obstacleMu.Unlock()
	return m.registry.Unregister(id)
}

// UpdateCollider 更新移动障碍物的包围盒
func (m *Manager) UpdateCollider(id systems.ColliderID, bounds components.Bounds) error {
	m.obstacleMu.Lock()
	defer m.obstacleMu.Unlock()
	return m.registry.UpdateBounds(id, bounds)
}

type stepContext struct {
	ctx      context.Context
	dt       float32
	frame    uint64
	pipeline *systems.Pipeline
}

// Tick 推进一帧
//
// 所有集合的管线并发运行，全部结束后才返回（帧屏障）。
// 超出 FrameBudget 时记录警告并设置 FrameStats.OverBudget。
//
// 参数:
//   - ctx: 只在汇合点检查取消
//   - dt: 帧间隔（秒）
func (m *Manager) Tick(ctx context.Context, dt float32) (FrameStats, error) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	if m.closed {
		return FrameStats{}, ErrManagerClosed
	}

	start := time.Now()
	m.frame++
	m.pruneDisposed()

	m.obstacleMu.Lock()
	m.registry.Rebuild()
	m.registry.Freeze()
	m.obstacleMu.Unlock()
	defer m.registry.Thaw()

	sets := m.sets
	perSet := make([]systems.StepStats, len(sets))
	sc := stepContext{ctx: ctx, dt: dt, frame: m.frame, pipeline: m.pipeline}

	var g errgroup.Group
	for i, s := range sets {
		g.Go(func() error {
			st, err := s.step(sc)
			perSet[i] = st
			return err
		})
	}
	err := g.Wait()

	stats := FrameStats{Frame: m.frame, Sets: len(sets)}
	for i, st := range perSet {
		stats.Destroyed += st.Destroyed
		stats.Colliding += st.Colliding
		stats.ModifierFailures += st.ModifierFailures
		stats.Active += sets[i].ActiveCount()
	}
	stats.Duration = time.Since(start)

	if m.cfg.FrameBudget > 0 && stats.Duration > m.cfg.FrameBudget {
		stats.OverBudget = true
		m.logger.Warn("[Manager] frame over budget",
			zap.Uint64("frame", m.frame),
			zap.Duration("duration", stats.Duration),
			zap.Duration("budget", m.cfg.FrameBudget),
			zap.Int("active", stats.Active))
	}
	if err != nil {
		return stats, eris.Wrapf(err, "tick frame %d", m.frame)
	}
	return stats, nil
}

// pruneDisposed 移除已释放的集合
func (m *Manager) pruneDisposed() {
	kept := m.sets[:0]
	for _, s := range m.sets {
		if s.Disposed() {
			if m.byName[s.name] == s {
				delete(m.byName, s.name)
			}
			m.logger.Debug("[Manager] set removed", zap.String("name", s.name))
			continue
		}
		kept = append(kept, s)
	}
	clear(m.sets[len(kept):])
	m.sets = kept
}

// Render 把所有可见集合提交给渲染后端
//
// 集合按 RenderConfig.Key() 分组，分组顺序和组内池的顺序都遵循集合的创建顺序。
// 渲染期间持有每个集合的锁，其他 goroutine 的 Fire/Destroy 会等待渲染结束；
// 因此 sub 不能回调集合的方法。
//
// 参数:
//   - cameraMask: 摄像机可见图层掩码
//   - sub: 渲染后端
func (m *Manager) Render(cameraMask uint32, sub systems.Submitter) (systems.BatchStats, error) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	if m.closed {
		return systems.BatchStats{}, ErrManagerClosed
	}
	groups, unlock := m.lockRenderGroups()
	defer unlock()
	return m.batcher.Render(groups, cameraMask, sub)
}

// lockRenderGroups 按创建顺序锁定所有未释放的集合并分组
// 调用方必须在读取完池之后调用返回的 unlock
func (m *Manager) lockRenderGroups() ([]systems.RenderGroup, func()) {
	var (
		groups []systems.RenderGroup
		locked []*EntitySet
	)
	index := make(map[components.RenderKey]int)
	for _, s := range m.sets {
		s.mu.Lock()
		if s.disposed {
			s.mu.Unlock()
			continue
		}
		locked = append(locked, s)

		key := s.cfg.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, systems.RenderGroup{Config: s.cfg})
		}
		groups[i].Pools = append(groups[i].Pools, s.pool)
	}
	return groups, func() {
		for _, s := range locked {
			s.mu.Unlock()
		}
	}
}

// Close 释放所有集合，之后的 Tick/Render/CreateSet 返回 ErrManagerClosed
func (m *Manager) Close() {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	if m.closed {
		return
	}
	for _, s := range m.sets {
		s.Dispose()
	}
	m.sets = nil
	clear(m.byName)
	m.closed = true
	m.logger.Info("[Manager] closed", zap.Uint64("frames", m.frame))
}
