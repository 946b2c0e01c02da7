package curve

import (
	"math"
	"strings"
)

// Easing Functions (缓动函数)
//
// 所有函数接受进度 t ∈ [0, 1]，返回缓动后的值 ∈ [0, 1]。
// 参考：https://easings.net/

// EasingFunc 缓动函数
type EasingFunc func(t float32) float32

// Linear 线性（无缓动）
func Linear(t float32) float32 {
	return t
}

// EaseInQuad 二次方缓入
// 公式：f(t) = t²
func EaseInQuad(t float32) float32 {
	return t * t
}

// EaseOutQuad 二次方缓出
// 公式：f(t) = 1 - (1-t)²
func EaseOutQuad(t float32) float32 {
	return 1 - (1-t)*(1-t)
}

// EaseInCubic 三次方缓入
// 公式：f(t) = t³
func EaseInCubic(t float32) float32 {
	return t * t * t
}

// EaseOutCubic 三次方缓出
// 公式：f(t) = 1 - (1-t)³
func EaseOutCubic(t float32) float32 {
	u := 1 - t
	return 1 - u*u*u
}

// EaseInOutCubic 三次方缓入缓出
//
//	t < 0.5: f(t) = 4t³
//	t >= 0.5: f(t) = 1 - (-2t + 2)³ / 2
func EaseInOutCubic(t float32) float32 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// EaseOutExpo 指数缓出
// 公式：f(t) = 1 - 2^(-10t)
func EaseOutExpo(t float32) float32 {
	if t >= 1 {
		return 1
	}
	return 1 - float32(math.Pow(2, float64(-10*t)))
}

// Smoothstep 平滑阶跃 3t² - 2t³
func Smoothstep(t float32) float32 {
	return t * t * (3 - 2*t)
}

// Clamp01 把 t 截断到 [0, 1]
func Clamp01(t float32) float32 {
	return min(max(t, 0), 1)
}

// Lerp 线性插值，t=0 返回 a，t=1 返回 b
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

var easings = map[string]EasingFunc{
	"linear":         Linear,
	"easein":         EaseInQuad,
	"easeout":        EaseOutQuad,
	"easeinquad":     EaseInQuad,
	"easeoutquad":    EaseOutQuad,
	"easeincubic":    EaseInCubic,
	"easeoutcubic":   EaseOutCubic,
	"easeinoutcubic": EaseInOutCubic,
	"easeoutexpo":    EaseOutExpo,
	"smoothstep":     Smoothstep,
	"fastinoutweak":  Smoothstep,
}

// EasingByName 按名称查找缓动函数（不区分大小写，空名称为 Linear）
func EasingByName(name string) (EasingFunc, bool) {
	if name == "" {
		return Linear, true
	}
	fn, ok := easings[strings.ToLower(name)]
	return fn, ok
}
