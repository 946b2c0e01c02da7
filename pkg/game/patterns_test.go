package game

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/ecs"
)

func TestFireRing(t *testing.T) {
	m := newManager(t)
	set, err := m.CreateSet("ring", bulletSprite)
	require.NoError(t, err)

	hs, err := FireRing(set, RingPattern{Center: components.Vec2{X: 5, Y: 5}, Count: 4, Speed: 10})
	require.NoError(t, err)
	require.Len(t, hs, 4)

	for i, h := range hs {
		st, err := set.Pool().State(h)
		require.NoError(t, err)
		assert.InDelta(t, float64(i)*math.Pi/2, st.Rotation, 1e-5)
		assert.Equal(t, components.Vec2{X: 5, Y: 5}, st.Position)
		assert.Equal(t, float32(10), st.Speed)
	}

	hs, err = FireRing(set, RingPattern{Count: 0})
	assert.NoError(t, err)
	assert.Empty(t, hs)
}

func TestFireSpread(t *testing.T) {
	m := newManager(t)
	set, err := m.CreateSet("spread", bulletSprite)
	require.NoError(t, err)

	hs, err := FireSpread(set, SpreadPattern{Count: 3, Direction: math.Pi / 2, Arc: math.Pi / 2, Speed: 5})
	require.NoError(t, err)
	want := []float64{math.Pi / 4, math.Pi / 2, 3 * math.Pi / 4}
	for i, h := range hs {
		rot, err := set.Pool().Rotation(h)
		require.NoError(t, err)
		assert.InDelta(t, want[i], rot, 1e-5)
	}

	hs, err = FireSpread(set, SpreadPattern{Count: 1, Direction: 1, Arc: 2})
	require.NoError(t, err)
	rot, err := set.Pool().Rotation(hs[0])
	require.NoError(t, err)
	assert.InDelta(t, 1, rot, 1e-6)
}

// TestFireRing_Exhausted 固定容量不足时整批失败
func TestFireRing_Exhausted(t *testing.T) {
	m := newManager(t)
	set, err := m.CreateSet("small", bulletSprite, WithCapacity(3), WithFixedCapacity())
	require.NoError(t, err)

	_, err = FireRing(set, RingPattern{Count: 4})
	assert.True(t, errors.Is(err, ecs.ErrPoolExhausted))
	assert.Equal(t, 0, set.ActiveCount())
}
