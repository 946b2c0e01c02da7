package game

import (
	"slices"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/ecs"
	"github.com/decker502/danmaku/pkg/systems"
)

// SetOption 配置 EntitySet
type SetOption func(*setOptions)

type setOptions struct {
	capacity  int
	fixed     bool
	modifiers []systems.Modifier
}

// WithCapacity 设置实体池初始容量
func WithCapacity(n int) SetOption {
	return func(o *setOptions) { o.capacity = n }
}

// WithFixedCapacity 禁用扩容，池满时 Fire 返回 ecs.ErrPoolExhausted
func WithFixedCapacity() SetOption {
	return func(o *setOptions) { o.fixed = true }
}

// WithModifiers 设置初始修改器列表（按顺序）
func WithModifiers(mods ...systems.Modifier) SetOption {
	return func(o *setOptions) { o.modifiers = append(o.modifiers, mods...) }
}

// EntitySet 弹幕集合
//
// 一个命名的实体池加一个有序的修改器列表，共享同一个渲染配置。
// 只能通过 Manager.CreateSet 创建。
//
// 集合的方法可以从任意 goroutine 调用：Tick 期间调用会等待该集合的管线结束，
// Render 期间调用会等待渲染读取完成。
// 修改器运行在管线内部，应直接操作 ModifierContext.Pool，而不是调用集合的方法。
type EntitySet struct {
	mu       sync.Mutex
	name     string
	cfg      components.RenderConfig
	pool     *ecs.EntityPool
	mods     []systems.Modifier
	disposed bool
}

// Name 集合名称
func (s *EntitySet) Name() string { return s.name }

// RenderConfig 集合的渲染配置
func (s *EntitySet) RenderConfig() components.RenderConfig { return s.cfg }

// Pool 返回底层实体池
// 只能在帧之间使用，不要在 Tick 运行期间读写
func (s *EntitySet) Pool() *ecs.EntityPool { return s.pool }

// ActiveCount 活跃实体数量（包括待销毁的实体）
func (s *EntitySet) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return 0
	}
	return s.pool.ActiveCount()
}

// Disposed 报告集合是否已释放
func (s *EntitySet) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Fire 发射一颗弹幕
func (s *EntitySet) Fire(state components.BulletState) (ecs.EntityHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ecs.EntityHandle{}, eris.Wrapf(ErrSetDisposed, "set %q", s.name)
	}
	return s.pool.Get(state)
}

// FireBatch 批量发射（全部成功或全部失败）
func (s *EntitySet) FireBatch(states []components.BulletState) ([]ecs.EntityHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, eris.Wrapf(ErrSetDisposed, "set %q", s.name)
	}
	return s.pool.GetBatch(states)
}

// Destroy 请求销毁实体（帧末压缩）
func (s *EntitySet) Destroy(h ecs.EntityHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return eris.Wrapf(ErrSetDisposed, "set %q", s.name)
	}
	return s.pool.Destroy(h)
}

// Clear 请求销毁集合中的所有实体
func (s *EntitySet) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return eris.Wrapf(ErrSetDisposed, "set %q", s.name)
	}
	s.pool.DestroyAll()
	return nil
}

// AddModifier 追加修改器到列表末尾
func (s *EntitySet) AddModifier(m systems.Modifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return eris.Wrapf(ErrSetDisposed, "set %q", s.name)
	}
	s.mods = append(s.mods, m)
	return nil
}

// RemoveModifier 移除修改器（保持其余顺序）
//
// 返回:
//   - bool: 修改器不在列表中时返回 false
func (s *EntitySet) RemoveModifier(m systems.Modifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.mods, m)
	if i < 0 {
		return false
	}
	s.mods = slices.Delete(s.mods, i, i+1)
	return true
}

// Modifiers 返回修改器列表的副本
func (s *EntitySet) Modifiers() []systems.Modifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.mods)
}

// Dispose 释放集合及其实体池
// 持有 Close() 方法的修改器（如 LuaModifier）同时被关闭
func (s *EntitySet) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.pool.Dispose()
	for _, m := range s.mods {
		if c, ok := m.(interface{ Close() }); ok {
			c.Close()
		}
	}
	s.mods = nil
}

// step 运行一帧管线，由 Manager.Tick 调用
func (s *EntitySet) step(ctx stepContext) (systems.StepStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return systems.StepStats{}, nil
	}
	params := systems.FrameParams{
		Dt:             ctx.dt,
		Frame:          ctx.frame,
		ColliderRadius: s.cfg.ColliderRadius,
		Scale:          s.cfg.EffectiveScale(),
	}
	stats, err := ctx.pipeline.Run(ctx.ctx, s.pool, s.mods, params)
	if err != nil {
		return stats, eris.Wrapf(err, "set %q", s.name)
	}
	return stats, nil
}
