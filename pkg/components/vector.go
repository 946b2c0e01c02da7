package components

import "math"

// Vec2 是二维世界坐标/方向向量（单精度，与实体列存储保持一致）
type Vec2 struct {
	X float32
	Y float32
}

// Add 返回 v + o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub 返回 v - o
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale 返回 v * s
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Len 返回向量长度
func (v Vec2) Len() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// Direction 返回朝向 rotation（弧度）的单位向量 (cos r, sin r)
func Direction(rotation float32) Vec2 {
	s, c := math.Sincos(float64(rotation))
	return Vec2{X: float32(c), Y: float32(s)}
}
