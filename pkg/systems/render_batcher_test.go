package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/ecs"
)

func filledPool(t *testing.T, n int, x0 float32) *ecs.EntityPool {
	t.Helper()
	pool := ecs.NewEntityPool(n)
	for i := range n {
		_, err := pool.Get(components.BulletState{Position: components.Vec2{X: x0 + float32(i)}, Color: components.White})
		require.NoError(t, err)
	}
	return pool
}

type recordingSubmitter struct {
	counts []int
	firstX []float32
	layers []int
}

func (r *recordingSubmitter) Submit(req BatchRequest) error {
	r.counts = append(r.counts, req.Count)
	r.firstX = append(r.firstX, req.Transforms[0].Translation().X)
	r.layers = append(r.layers, req.Layer)
	if len(req.Transforms) != req.Count || len(req.Colors) != req.Count {
		return assert.AnError
	}
	return nil
}

var sprite0 = components.RenderConfig{Sprite: "orb", Material: "additive", Layer: 0}

// TestRenderBatcher_1023 1023 个实体产生 1 个批次
func TestRenderBatcher_1023(t *testing.T) {
	b := NewRenderBatcher(0)
	sub := &recordingSubmitter{}
	stats, err := b.Render([]RenderGroup{{Config: sprite0, Pools: []*ecs.EntityPool{filledPool(t, 1023, 0)}}}, 1, sub)
	require.NoError(t, err)
	assert.Equal(t, []int{1023}, sub.counts)
	assert.Equal(t, BatchStats{Groups: 1, Batches: 1, Instances: 1023}, stats)
}

// TestRenderBatcher_1024 1024 个实体产生 2 个批次（1023 + 1）
func TestRenderBatcher_1024(t *testing.T) {
	b := NewRenderBatcher(DefaultMaxBatchSize)
	sub := &recordingSubmitter{}
	_, err := b.Render([]RenderGroup{{Config: sprite0, Pools: []*ecs.EntityPool{filledPool(t, 1024, 0)}}}, 1, sub)
	require.NoError(t, err)
	assert.Equal(t, []int{1023, 1}, sub.counts)
	assert.Equal(t, []float32{0, 1023}, sub.firstX, "按活跃顺序分块")
}

// TestRenderBatcher_SpansPoolsNotGroups 批次可跨同组的多个池，但不跨组
func TestRenderBatcher_SpansPoolsNotGroups(t *testing.T) {
	b := NewRenderBatcher(4)
	sub := &recordingSubmitter{}
	other := components.RenderConfig{Mesh: "quad", Layer: 2}
	groups := []RenderGroup{
		{Config: sprite0, Pools: []*ecs.EntityPool{filledPool(t, 3, 0), filledPool(t, 3, 100)}},
		{Config: other, Pools: []*ecs.EntityPool{filledPool(t, 1, 200)}},
	}
	stats, err := b.Render(groups, 1|1<<2, sub)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2, 1}, sub.counts)
	assert.Equal(t, []float32{0, 101, 200}, sub.firstX)
	assert.Equal(t, []int{0, 0, 2}, sub.layers)
	assert.Equal(t, 2, stats.Groups)
	assert.Equal(t, 7, stats.Instances)
}

// TestRenderBatcher_CameraMask 跳过摄像机不可见的图层
func TestRenderBatcher_CameraMask(t *testing.T) {
	b := NewRenderBatcher(0)
	sub := &recordingSubmitter{}
	hidden := components.RenderConfig{Sprite: "orb", Layer: 5}
	stats, err := b.Render([]RenderGroup{{Config: hidden, Pools: []*ecs.EntityPool{filledPool(t, 10, 0)}}}, 1, sub)
	require.NoError(t, err)
	assert.Empty(t, sub.counts)
	assert.Zero(t, stats.Groups)
}

// TestRenderBatcher_SubmitError 后端错误立即停止渲染
func TestRenderBatcher_SubmitError(t *testing.T) {
	b := NewRenderBatcher(2)
	calls := 0
	sub := SubmitterFunc(func(BatchRequest) error {
		calls++
		return assert.AnError
	})
	_, err := b.Render([]RenderGroup{{Config: sprite0, Pools: []*ecs.EntityPool{filledPool(t, 5, 0)}}}, 1, sub)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

// TestRenderBatcher_NoMutation 渲染不修改实体数据
func TestRenderBatcher_NoMutation(t *testing.T) {
	pool := filledPool(t, 5, 0)
	before := append([]components.Matrix4(nil), pool.Columns().Transforms...)
	b := NewRenderBatcher(2)
	_, err := b.Render([]RenderGroup{{Config: sprite0, Pools: []*ecs.EntityPool{pool}}}, 1, SubmitterFunc(func(req BatchRequest) error {
		req.Transforms[0] = components.Matrix4{}
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, before, pool.Columns().Transforms)
	assert.Equal(t, 5, pool.ActiveCount())
}

// TestRenderBatcher_MaxBatchClamped 批次上限不能超过 DefaultMaxBatchSize
func TestRenderBatcher_MaxBatchClamped(t *testing.T) {
	b := NewRenderBatcher(20000)
	assert.Equal(t, DefaultMaxBatchSize, b.MaxBatch())

	sub := &recordingSubmitter{}
	_, err := b.Render([]RenderGroup{{Config: sprite0, Pools: []*ecs.EntityPool{filledPool(t, 2100, 0)}}}, 1, sub)
	require.NoError(t, err)
	assert.Equal(t, []int{1023, 1023, 54}, sub.counts)
}
