package systems

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decker502/danmaku/pkg/components"
)

func box(x0, y0, x1, y1 float32) components.Bounds {
	return components.Bounds{Min: components.Vec2{X: x0, Y: y0}, Max: components.Vec2{X: x1, Y: y1}}
}

// TestColliderRegistry_Layer3 障碍物 [(0,0),(2,2)] 在图层 3
func TestColliderRegistry_Layer3(t *testing.T) {
	r := NewColliderRegistry(nil)
	_, err := r.Register(box(0, 0, 2, 2), 3)
	require.NoError(t, err)
	r.Rebuild()

	assert.Equal(t, uint32(1<<3), r.LayerMask())
	assert.Zero(t, r.Test(box(5, 5, 6, 6))&(1<<3), "不相交的包围盒不应设置第 3 位")
	assert.Equal(t, uint32(1<<3), r.Test(box(1, 1, 3, 3)), "相交的包围盒应设置第 3 位")
	// 边缘接触视为相交
	assert.Equal(t, uint32(1<<3), r.Test(box(2, 2, 4, 4)))
}

// TestColliderRegistry_MultipleLayers 测试多图层掩码
func TestColliderRegistry_MultipleLayers(t *testing.T) {
	r := NewColliderRegistry(nil)
	_, err := r.Register(box(0, 0, 10, 10), 0)
	require.NoError(t, err)
	_, err = r.Register(box(5, 5, 15, 15), 31)
	require.NoError(t, err)
	_, err = r.Register(box(100, 100, 110, 110), 7)
	require.NoError(t, err)
	r.Rebuild()

	assert.Equal(t, uint32(1|1<<7|1<<31), r.LayerMask())
	assert.Equal(t, uint32(1|1<<31), r.Test(box(6, 6, 7, 7)))
	assert.Equal(t, uint32(1), r.Test(box(1, 1, 2, 2)))
	assert.Equal(t, uint32(1<<7), r.Test(box(105, 105, 106, 106)))

	// 聚合包围盒内但不与任何障碍物相交
	assert.Zero(t, r.Test(box(50, 50, 51, 51)))

	agg := r.Aggregate()
	assert.Equal(t, box(0, 0, 110, 110), agg)
}

// TestColliderRegistry_InvalidLayer 测试非法图层
func TestColliderRegistry_InvalidLayer(t *testing.T) {
	r := NewColliderRegistry(nil)
	_, err := r.Register(box(0, 0, 1, 1), 32)
	assert.ErrorIs(t, err, ErrInvalidLayer)
	_, err = r.Register(box(0, 0, 1, 1), -1)
	assert.ErrorIs(t, err, ErrInvalidLayer)
	assert.Zero(t, r.Count())
}

// TestColliderRegistry_Unregister 测试注销（与末尾交换删除）
func TestColliderRegistry_Unregister(t *testing.T) {
	r := NewColliderRegistry(nil)
	a, err := r.Register(box(0, 0, 1, 1), 1)
	require.NoError(t, err)
	b, err := r.Register(box(10, 10, 11, 11), 2)
	require.NoError(t, err)
	c, err := r.Register(box(20, 20, 21, 21), 3)
	require.NoError(t, err)

	require.NoError(t, r.Unregister(a))
	assert.Equal(t, 2, r.Count())
	assert.ErrorIs(t, r.Unregister(a), ErrUnknownCollider)

	// 被移动到下标 0 的碰撞体仍可通过 ID 访问
	require.NoError(t, r.UpdateBounds(c, box(30, 30, 31, 31)))
	require.NoError(t, r.Unregister(b))
	r.Rebuild()

	assert.Equal(t, uint32(1<<3), r.LayerMask())
	assert.Equal(t, uint32(1<<3), r.Test(box(30, 30, 30.5, 30.5)))
	assert.Zero(t, r.Test(box(20, 20, 21, 21)))
}

// TestColliderRegistry_Frozen 测试帧运行期间禁止修改
func TestColliderRegistry_Frozen(t *testing.T) {
	r := NewColliderRegistry(nil)
	id, err := r.Register(box(0, 0, 1, 1), 0)
	require.NoError(t, err)

	r.Rebuild()
	r.Freeze()
	assert.True(t, r.Frozen())

	_, err = r.Register(box(0, 0, 1, 1), 0)
	assert.ErrorIs(t, err, ErrRegistryFrozen)
	assert.ErrorIs(t, r.Unregister(id), ErrRegistryFrozen)
	assert.ErrorIs(t, r.UpdateBounds(id, box(2, 2, 3, 3)), ErrRegistryFrozen)

	r.Thaw()
	assert.NoError(t, r.Unregister(id))
}

// TestColliderRegistry_Empty 空注册表总是返回 0
func TestColliderRegistry_Empty(t *testing.T) {
	r := NewColliderRegistry(nil)
	r.Rebuild()
	assert.Zero(t, r.Test(box(-1e6, -1e6, 1e6, 1e6)))
	assert.True(t, r.Aggregate().IsEmpty())
}

// TestColliderRegistry_ConcurrentTest Rebuild 之后允许并发查询
func TestColliderRegistry_ConcurrentTest(t *testing.T) {
	r := NewColliderRegistry(nil)
	for i := range 32 {
		_, err := r.Register(box(float32(i*10), 0, float32(i*10+5), 5), i)
		require.NoError(t, err)
	}
	r.Rebuild()
	r.Freeze()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 1000 {
				l := (i + j) % 32
				x := float32(l*10 + 1)
				if got := r.Test(box(x, 1, x+1, 2)); got != 1<<uint(l) {
					t.Errorf("layer %d: got mask %b", l, got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkColliderRegistryTest(b *testing.B) {
	r := NewColliderRegistry(nil)
	for i := range 256 {
		x := float32(i%16) * 50
		y := float32(i/16) * 50
		_, _ = r.Register(box(x, y, x+20, y+20), i%8)
	}
	r.Rebuild()
	q := box(400, 400, 405, 405)
	for b.Loop() {
		_ = r.Test(q)
	}
}
