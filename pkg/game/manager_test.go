package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/config"
	"github.com/decker502/danmaku/pkg/ecs"
	"github.com/decker502/danmaku/pkg/systems"
)

var bulletSprite = components.RenderConfig{Sprite: "bullet", Material: "additive"}

func newManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	m := NewManager(config.Defaults().Simulation, opts...)
	t.Cleanup(m.Close)
	return m
}

// countingSubmitter 记录每个批次的实例数
type countingSubmitter struct {
	batches []int
	layers  []int
}

func (c *countingSubmitter) Submit(req systems.BatchRequest) error {
	c.batches = append(c.batches, req.Count)
	c.layers = append(c.layers, req.Layer)
	return nil
}

// TestManager_EndToEnd 容量 4，四颗速度 1 向右的弹幕，4 帧后 x≈4；销毁第 0 颗后剩 3 颗
func TestManager_EndToEnd(t *testing.T) {
	m := newManager(t)
	set, err := m.CreateSet("e2e", bulletSprite, WithCapacity(4), WithFixedCapacity())
	require.NoError(t, err)

	var handles []ecs.EntityHandle
	for i := 0; i < 4; i++ {
		h, err := set.Fire(components.BulletState{
			Position: components.Vec2{Y: float32(i)},
			Speed:    1,
			Color:    components.White,
		})
		require.NoError(t, err)
		handles = append(handles, h)
	}
	_, err = set.Fire(components.BulletState{})
	assert.True(t, errors.Is(err, ecs.ErrPoolExhausted))

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := m.Tick(ctx, 1)
		require.NoError(t, err)
	}
	for _, h := range handles {
		pos, err := set.Pool().Position(h)
		require.NoError(t, err)
		assert.InDelta(t, 4, pos.X, 1e-4)
	}

	require.NoError(t, set.Destroy(handles[0]))
	stats, err := m.Tick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Destroyed)
	assert.Equal(t, 3, stats.Active)
	assert.Equal(t, 3, set.ActiveCount())
	assert.False(t, set.Pool().IsValid(handles[0]))
	assert.Equal(t, uint64(5), m.Frame())

	sub := &countingSubmitter{}
	bs, err := m.Render(^uint32(0), sub)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, sub.batches)
	assert.Equal(t, 3, bs.Instances)
}

func TestManager_CreateSetErrors(t *testing.T) {
	m := newManager(t)

	_, err := m.CreateSet("none", components.RenderConfig{})
	assert.True(t, errors.Is(err, components.ErrInvalidRenderConfig))

	_, err = m.CreateSet("layer", components.RenderConfig{Mesh: "quad", Layer: 32})
	assert.True(t, errors.Is(err, components.ErrInvalidRenderConfig))

	_, err = m.CreateSet("a", bulletSprite)
	require.NoError(t, err)
	_, err = m.CreateSet("a", bulletSprite)
	assert.True(t, errors.Is(err, ErrDuplicateSet))
}

// TestManager_DisposedSetRemoved 已释放的集合在下一帧移除，名称可以重用
func TestManager_DisposedSetRemoved(t *testing.T) {
	m := newManager(t)
	a, err := m.CreateSet("a", bulletSprite)
	require.NoError(t, err)
	_, err = a.Fire(components.BulletState{Speed: 1})
	require.NoError(t, err)

	a.Dispose()
	_, err = a.Fire(components.BulletState{})
	assert.True(t, errors.Is(err, ErrSetDisposed))
	assert.True(t, errors.Is(a.AddModifier(&systems.Lifetime{MaxAge: 1}), ErrSetDisposed))
	assert.Equal(t, 0, a.ActiveCount())

	stats, err := m.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sets)
	assert.Empty(t, m.Sets())
	_, ok := m.Set("a")
	assert.False(t, ok)

	b, err := m.CreateSet("a", bulletSprite)
	require.NoError(t, err)
	got, ok := m.Set("a")
	require.True(t, ok)
	assert.Same(t, b, got)
}

// TestManager_Collision 穿过障碍物的弹幕在同一帧被碰撞响应销毁
func TestManager_Collision(t *testing.T) {
	m := newManager(t)
	id, err := m.RegisterCollider(components.Bounds{Max: components.Vec2{X: 2, Y: 2}}, 3)
	require.NoError(t, err)

	var hits []uint32
	set, err := m.CreateSet("shots", components.RenderConfig{Sprite: "bullet", ColliderRadius: 0.5},
		WithModifiers(&systems.CollisionResponse{
			Mask:    1 << 3,
			Destroy: true,
			OnHit:   func(_ ecs.EntityHandle, hit uint32) { hits = append(hits, hit) },
		}))
	require.NoError(t, err)

	// 第一颗穿过障碍物，第二颗在远处
	_, err = set.Fire(components.BulletState{Position: components.Vec2{X: -5, Y: 1}, Speed: 10})
	require.NoError(t, err)
	far, err := set.Fire(components.BulletState{Position: components.Vec2{X: -5, Y: 50}, Speed: 10})
	require.NoError(t, err)

	stats, err := m.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Colliding)
	assert.Equal(t, 1, stats.Destroyed)
	assert.Equal(t, []uint32{1 << 3}, hits)
	assert.Equal(t, 1, set.ActiveCount())
	assert.False(t, m.Registry().Frozen())

	// 压缩把远处的弹幕移到了 slot 0，原句柄随之失效
	assert.False(t, set.Pool().IsValid(far))
	moved, err := set.Pool().HandleAt(0)
	require.NoError(t, err)
	pos, err := set.Pool().Position(moved)
	require.NoError(t, err)
	assert.InDelta(t, 5, pos.X, 1e-4)
	assert.InDelta(t, 50, pos.Y, 1e-4)

	// 移走障碍物后不再碰撞
	require.NoError(t, m.UpdateCollider(id, components.Bounds{
		Min: components.Vec2{X: 100, Y: 100},
		Max: components.Vec2{X: 101, Y: 101},
	}))
	stats, err = m.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Colliding)

	require.NoError(t, m.UnregisterCollider(id))
	assert.True(t, errors.Is(m.UnregisterCollider(id), systems.ErrUnknownCollider))
}

// TestManager_RegistryFrozenDuringTick 帧内注册障碍物返回 ErrRegistryFrozen
func TestManager_RegistryFrozenDuringTick(t *testing.T) {
	m := newManager(t)
	var regErr error
	set, err := m.CreateSet("s", bulletSprite, WithModifiers(&systems.FuncModifier{
		ModName: "register",
		Fn: func(*systems.ModifierContext) error {
			_, regErr = m.RegisterCollider(components.Bounds{Max: components.Vec2{X: 1, Y: 1}}, 0)
			return nil
		},
	}))
	require.NoError(t, err)
	_, err = set.Fire(components.BulletState{})
	require.NoError(t, err)

	_, err = m.Tick(context.Background(), 0.016)
	require.NoError(t, err)
	assert.True(t, errors.Is(regErr, systems.ErrRegistryFrozen))

	_, err = m.RegisterCollider(components.Bounds{Max: components.Vec2{X: 1, Y: 1}}, 0)
	assert.NoError(t, err)
}

// TestManager_ConcurrentSets 多个集合在同一帧内并发推进
func TestManager_ConcurrentSets(t *testing.T) {
	m := newManager(t)
	const sets, perSet = 8, 600
	for i := 0; i < sets; i++ {
		set, err := m.CreateSet(string(rune('a'+i)), bulletSprite,
			WithModifiers(&systems.Lifetime{MaxAge: 2.5}))
		require.NoError(t, err)
		states := make([]components.BulletState, perSet)
		for j := range states {
			states[j] = components.BulletState{Speed: float32(j)}
		}
		_, err = set.FireBatch(states)
		require.NoError(t, err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		stats, err := m.Tick(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, sets*perSet, stats.Active)
	}
	stats, err := m.Tick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, sets*perSet, stats.Destroyed)
	assert.Equal(t, 0, stats.Active)
}

// TestManager_RenderGrouping 同一渲染键的集合合并为一组，图层不可见的组被跳过
func TestManager_RenderGrouping(t *testing.T) {
	m := newManager(t, WithRenderBatchSize(4))
	a, err := m.CreateSet("a", bulletSprite)
	require.NoError(t, err)
	b, err := m.CreateSet("b", components.RenderConfig{Sprite: "bullet", Material: "additive", Layer: 1})
	require.NoError(t, err)
	c, err := m.CreateSet("c", bulletSprite)
	require.NoError(t, err)

	fire := func(s *EntitySet, n int) {
		_, err := s.FireBatch(make([]components.BulletState, n))
		require.NoError(t, err)
	}
	fire(a, 3)
	fire(b, 2)
	fire(c, 3)
	_, err = m.Tick(context.Background(), 0)
	require.NoError(t, err)

	sub := &countingSubmitter{}
	stats, err := m.Render(^uint32(0), sub)
	require.NoError(t, err)
	// a 与 c 同组：3+3 按 4 分块；b 单独一组
	assert.Equal(t, []int{4, 2, 2}, sub.batches)
	assert.Equal(t, []int{0, 0, 1}, sub.layers)
	assert.Equal(t, 2, stats.Groups)

	sub = &countingSubmitter{}
	stats, err = m.Render(1<<1, sub)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, sub.batches)
	assert.Equal(t, 1, stats.Groups)
}

// TestManager_FrameBudget 超出帧预算时记录警告并标记 OverBudget
func TestManager_FrameBudget(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := config.Defaults().Simulation
	cfg.FrameBudget = time.Nanosecond
	m := NewManager(cfg, WithLogger(zap.New(core)))
	defer m.Close()

	set, err := m.CreateSet("slow", bulletSprite, WithModifiers(&systems.FuncModifier{
		Fn: func(*systems.ModifierContext) error {
			time.Sleep(time.Millisecond)
			return nil
		},
	}))
	require.NoError(t, err)
	_, err = set.Fire(components.BulletState{})
	require.NoError(t, err)

	stats, err := m.Tick(context.Background(), 0.016)
	require.NoError(t, err)
	assert.True(t, stats.OverBudget)
	assert.GreaterOrEqual(t, stats.Duration, time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("[Manager] frame over budget").Len())
}

// TestManager_ModifierFailureCounted 修改器失败不会中止帧
func TestManager_ModifierFailureCounted(t *testing.T) {
	m := newManager(t)
	set, err := m.CreateSet("s", bulletSprite, WithModifiers(&systems.FuncModifier{
		ModName: "broken",
		Fn:      func(*systems.ModifierContext) error { panic("boom") },
	}))
	require.NoError(t, err)
	_, err = set.Fire(components.BulletState{Speed: 2})
	require.NoError(t, err)

	stats, err := m.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ModifierFailures)
	assert.Equal(t, 1, stats.Active)
}

func TestManager_Cancelled(t *testing.T) {
	m := newManager(t)
	set, err := m.CreateSet("s", bulletSprite)
	require.NoError(t, err)
	_, err = set.Fire(components.BulletState{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Tick(ctx, 1)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, m.Registry().Frozen())
}

func TestManager_Close(t *testing.T) {
	m := NewManager(config.Defaults().Simulation)
	set, err := m.CreateSet("s", bulletSprite)
	require.NoError(t, err)

	m.Close()
	m.Close()
	assert.True(t, set.Disposed())

	_, err = m.Tick(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrManagerClosed))
	_, err = m.Render(^uint32(0), &countingSubmitter{})
	assert.True(t, errors.Is(err, ErrManagerClosed))
	_, err = m.CreateSet("t", bulletSprite)
	assert.True(t, errors.Is(err, ErrManagerClosed))
}

func TestEntitySet_Modifiers(t *testing.T) {
	m := newManager(t)
	set, err := m.CreateSet("s", bulletSprite)
	require.NoError(t, err)

	accel := &systems.Acceleration{Rate: 1}
	life := &systems.Lifetime{MaxAge: 1}
	require.NoError(t, set.AddModifier(accel))
	require.NoError(t, set.AddModifier(life))
	assert.Equal(t, []systems.Modifier{accel, life}, set.Modifiers())

	assert.True(t, set.RemoveModifier(accel))
	assert.False(t, set.RemoveModifier(accel))
	assert.Equal(t, []systems.Modifier{life}, set.Modifiers())

	_, err = set.Fire(components.BulletState{})
	require.NoError(t, err)
	require.NoError(t, set.Clear())
	_, err = m.Tick(context.Background(), 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0, set.ActiveCount())
}

func BenchmarkManager_Tick(b *testing.B) {
	m := NewManager(config.Defaults().Simulation)
	defer m.Close()
	for i := 0; i < 4; i++ {
		set, _ := m.CreateSet(string(rune('a'+i)), bulletSprite)
		states := make([]components.BulletState, 10000)
		for j := range states {
			states[j] = components.BulletState{Rotation: float32(j), Speed: 100}
		}
		_, _ = set.FireBatch(states)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Tick(ctx, 1.0/60)
	}
}

// TestManager_RenderWhileFiring 渲染与其他 goroutine 的发射（含扩容）互斥，需配合 -race 运行
func TestManager_RenderWhileFiring(t *testing.T) {
	m := newManager(t)
	set, err := m.CreateSet("busy", bulletSprite, WithCapacity(2))
	require.NoError(t, err)

	const shots = 2000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range shots {
			if _, err := set.Fire(components.BulletState{Position: components.Vec2{X: float32(i)}, Color: components.White}); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	sum := systems.SubmitterFunc(func(req systems.BatchRequest) error {
		for i := range req.Count {
			_ = req.Transforms[i].Translation()
			_ = req.Colors[i].A
		}
		return nil
	})
	for range 200 {
		_, err := m.Render(^uint32(0), sum)
		require.NoError(t, err)
	}
	wg.Wait()

	stats, err := m.Render(^uint32(0), sum)
	require.NoError(t, err)
	assert.Equal(t, shots, stats.Instances)
}
