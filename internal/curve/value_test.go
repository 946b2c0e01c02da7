package curve

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse_FixedValue 测试固定值格式
func TestParse_FixedValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float32
	}{
		{"Integer", "1500", 1500},
		{"Float", "3.14", 3.14},
		{"Negative", "-10.5", -10.5},
		{"Zero", "0", 0},
		{"Empty", "", 0},
		{"Bracketed", "[5]", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Min)
			assert.Equal(t, tt.want, v.Max)
			assert.False(t, v.IsKeyframed())
			assert.False(t, v.IsRange())
		})
	}
}

// TestParse_Range 测试范围格式
func TestParse_Range(t *testing.T) {
	v, err := Parse("[0.7 0.9]")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, v.Min, 1e-6)
	assert.InDelta(t, 0.9, v.Max, 1e-6)
	assert.True(t, v.IsRange())

	// 范围在 t 上线性过渡
	assert.InDelta(t, 0.8, v.At(0.5), 1e-6)

	r := rand.New(rand.NewPCG(1, 2))
	for range 100 {
		s := v.Sample(r)
		assert.GreaterOrEqual(t, s, v.Min)
		assert.LessOrEqual(t, s, v.Max)
	}
}

// TestParse_DualRange 测试双范围格式
func TestParse_DualRange(t *testing.T) {
	v, err := Parse("[0.4 0.6] [0.8 1.2]")
	require.NoError(t, err)
	assert.True(t, v.IsRange())
	assert.InDelta(t, 0.5, v.At(0), 1e-6)
	assert.InDelta(t, 1.0, v.At(1), 1e-6)

	resolved := v.Resolve(rand.New(rand.NewPCG(3, 4)))
	require.Len(t, resolved.Keyframes, 2)
	start := resolved.Keyframes[0].Value
	end := resolved.Keyframes[1].Value
	assert.True(t, start >= 0.4 && start <= 0.6, "起点 %v 超出范围", start)
	assert.True(t, end >= 0.8 && end <= 1.2, "终点 %v 超出范围", end)
}

// TestParse_Keyframes 测试关键帧格式
func TestParse_Keyframes(t *testing.T) {
	v, err := Parse("1,21 0,2 0.5,8")
	require.NoError(t, err)
	require.Len(t, v.Keyframes, 3)
	// 按时间排序
	assert.Equal(t, Keyframe{Time: 0, Value: 2}, v.Keyframes[0])
	assert.Equal(t, Keyframe{Time: 1, Value: 21}, v.Keyframes[2])

	assert.InDelta(t, 2, v.At(0), 1e-6)
	assert.InDelta(t, 5, v.At(0.25), 1e-6)
	assert.InDelta(t, 8, v.At(0.5), 1e-6)
	assert.InDelta(t, 21, v.At(1), 1e-6)
	// 截断
	assert.InDelta(t, 21, v.At(3), 1e-6)
	assert.InDelta(t, 2, v.At(-1), 1e-6)
}

// TestParse_Interpolation 测试插值关键字
func TestParse_Interpolation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		at    float32
		want  float32
	}{
		{"Linear", "Linear 0,0 1,10", 0.5, 5},
		{"EaseIn", "0,0 1,10 EaseIn", 0.5, 2.5},
		{"EaseOut", "EaseOut 0,0 1,10", 0.5, 7.5},
		{"FastInOutWeak", "FastInOutWeak 0,0 1,10", 0.5, 5},
		{"EaseOutCubic", "easeOutCubic 0,0 1,10", 0.5, 8.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, v.At(tt.at), 1e-4)
		})
	}
}

// TestParse_Errors 测试格式错误
func TestParse_Errors(t *testing.T) {
	inputs := []string{
		"abc",
		"[1 2",
		"[1 2 3]",
		"[a b]",
		"Bounce 0,0 1,1",
		"EaseIn",
		"0,x",
		"1 0,2",
		"[1 2] 3",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

// TestMustParse 测试 MustParse 在格式错误时 panic
func TestMustParse(t *testing.T) {
	assert.NotPanics(t, func() { MustParse("0,1 1,0") })
	assert.Panics(t, func() { MustParse("nope") })
}
