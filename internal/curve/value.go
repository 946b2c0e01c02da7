// Package curve 解析并求值配置中的数值表达式
//
// 支持的格式:
//   - 固定值: "1500"
//   - 范围: "[0.7 0.9]"（单值 "[5]" 视为固定值）
//   - 双范围: "[0.4 0.6] [0.8 1.2]"，起点和终点分别从两个范围中取值
//   - 关键帧: "0,2 0.5,8 1,21"（time,value，time 归一化到 0-1）
//   - 插值关键字: "EaseOut 0,10 1,0"，关键字可出现在任意位置
package curve

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidValue 数值表达式格式错误
var ErrInvalidValue = eris.New("invalid curve value")

// Keyframe 曲线上的一个关键帧
type Keyframe struct {
	Time  float32 // 归一化时间 0-1
	Value float32
}

// Value 解析后的数值表达式
type Value struct {
	Min float32
	Max float32

	// EndMin/EndMax 双范围格式的终点范围
	EndMin float32
	EndMax float32
	dual   bool

	Keyframes     []Keyframe
	Interpolation string
	easing        EasingFunc
}

// Fixed 返回固定值
func Fixed(v float32) Value {
	return Value{Min: v, Max: v}
}

// IsKeyframed 是否为关键帧曲线
func (v Value) IsKeyframed() bool { return len(v.Keyframes) > 0 }

// IsRange 是否为范围值（Min != Max 或双范围）
func (v Value) IsRange() bool { return v.dual || v.Min != v.Max }

// Parse 解析数值表达式
//
// 参数:
//   - s: 表达式字符串
//
// 返回:
//   - Value: 解析结果（空字符串得到固定值 0）
//   - error: 格式错误时返回包装了 ErrInvalidValue 的错误
func Parse(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, nil
	}

	// 双范围 "[a b] [c d]"
	if strings.Count(s, "[") == 2 {
		first, rest, _ := strings.Cut(s, "]")
		lo1, hi1, err := parseRange(strings.TrimPrefix(first, "["))
		if err != nil {
			return Value{}, eris.Wrapf(err, "dual range %q", s)
		}
		rest = strings.TrimSpace(rest)
		if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
			return Value{}, eris.Wrapf(ErrInvalidValue, "dual range %q", s)
		}
		lo2, hi2, err := parseRange(rest[1 : len(rest)-1])
		if err != nil {
			return Value{}, eris.Wrapf(err, "dual range %q", s)
		}
		return Value{Min: lo1, Max: hi1, EndMin: lo2, EndMax: hi2, dual: true, easing: Linear}, nil
	}

	// 范围 "[min max]" / "[v]"
	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return Value{}, eris.Wrapf(ErrInvalidValue, "unterminated range %q", s)
		}
		lo, hi, err := parseRange(s[1 : len(s)-1])
		if err != nil {
			return Value{}, eris.Wrapf(err, "range %q", s)
		}
		return Value{Min: lo, Max: hi}, nil
	}

	// 关键帧（可带插值关键字）
	fields := strings.Fields(s)
	var (
		interp string
		kfs    []Keyframe
	)
	for _, f := range fields {
		if !strings.Contains(f, ",") {
			if _, err := strconv.ParseFloat(f, 32); err != nil {
				if interp != "" {
					return Value{}, eris.Wrapf(ErrInvalidValue, "multiple interpolation keywords in %q", s)
				}
				interp = f
				continue
			}
			if len(fields) == 1 {
				break
			}
			return Value{}, eris.Wrapf(ErrInvalidValue, "bare number %q mixed with keyframes", f)
		}
		ts, vs, _ := strings.Cut(f, ",")
		t, err1 := strconv.ParseFloat(ts, 32)
		v, err2 := strconv.ParseFloat(vs, 32)
		if err1 != nil || err2 != nil {
			return Value{}, eris.Wrapf(ErrInvalidValue, "keyframe %q", f)
		}
		kfs = append(kfs, Keyframe{Time: float32(t), Value: float32(v)})
	}

	if len(kfs) == 0 {
		if interp != "" {
			return Value{}, eris.Wrapf(ErrInvalidValue, "interpolation %q without keyframes", interp)
		}
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, eris.Wrapf(ErrInvalidValue, "number %q", s)
		}
		return Fixed(float32(v)), nil
	}

	easing, ok := EasingByName(interp)
	if !ok {
		return Value{}, eris.Wrapf(ErrInvalidValue, "unknown interpolation %q", interp)
	}
	slices.SortStableFunc(kfs, func(a, b Keyframe) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return Value{Keyframes: kfs, Interpolation: interp, easing: easing}, nil
}

// MustParse 解析失败时 panic，仅用于常量表达式
func MustParse(s string) Value {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseRange(s string) (float32, float32, error) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 32)
		if err != nil {
			return 0, 0, eris.Wrapf(ErrInvalidValue, "number %q", parts[0])
		}
		return float32(v), float32(v), nil
	case 2:
		lo, err1 := strconv.ParseFloat(parts[0], 32)
		hi, err2 := strconv.ParseFloat(parts[1], 32)
		if err1 != nil || err2 != nil {
			return 0, 0, eris.Wrapf(ErrInvalidValue, "range bounds %q", s)
		}
		return float32(lo), float32(hi), nil
	}
	return 0, 0, eris.Wrapf(ErrInvalidValue, "range needs 1 or 2 numbers, got %d", len(parts))
}

// At 求归一化时间 t（0-1）处的值
//
//   - 关键帧: 在相邻关键帧之间按插值函数插值，t 早于首帧取首帧值，晚于末帧取末帧值
//   - 范围/双范围: 从起点中值过渡到终点中值（单范围即 Min→Max 线性过渡）
//   - 固定值: 常数
func (v Value) At(t float32) float32 {
	t = Clamp01(t)
	switch {
	case len(v.Keyframes) > 0:
		return v.evaluate(t)
	case v.dual:
		return Lerp((v.Min+v.Max)/2, (v.EndMin+v.EndMax)/2, t)
	default:
		return Lerp(v.Min, v.Max, t)
	}
}

func (v Value) evaluate(t float32) float32 {
	kfs := v.Keyframes
	if len(kfs) == 1 || t <= kfs[0].Time {
		return kfs[0].Value
	}
	ease := v.easing
	if ease == nil {
		ease = Linear
	}
	for i := 0; i < len(kfs)-1; i++ {
		k0, k1 := kfs[i], kfs[i+1]
		if t > k1.Time {
			continue
		}
		d := k1.Time - k0.Time
		if d <= 0 {
			return k1.Value
		}
		return Lerp(k0.Value, k1.Value, ease((t-k0.Time)/d))
	}
	return kfs[len(kfs)-1].Value
}

// Sample 从范围中随机取值（固定值直接返回，关键帧返回首帧值）
//
// 参数:
//   - r: 随机源（nil 时使用全局随机源）
func (v Value) Sample(r *rand.Rand) float32 {
	if len(v.Keyframes) > 0 {
		return v.Keyframes[0].Value
	}
	return randomInRange(r, v.Min, v.Max)
}

// Resolve 把范围值固化为一条具体曲线：双范围的起点和终点各随机取一次
// 其他格式原样返回
func (v Value) Resolve(r *rand.Rand) Value {
	if !v.dual {
		return v
	}
	return Value{
		Keyframes: []Keyframe{
			{Time: 0, Value: randomInRange(r, v.Min, v.Max)},
			{Time: 1, Value: randomInRange(r, v.EndMin, v.EndMax)},
		},
		easing: Linear,
	}
}

func randomInRange(r *rand.Rand, lo, hi float32) float32 {
	if lo >= hi {
		return lo
	}
	var f float32
	if r == nil {
		f = rand.Float32()
	} else {
		f = r.Float32()
	}
	return lo + f*(hi-lo)
}
