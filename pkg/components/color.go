package components

// Color 实体颜色（RGBA，各通道 0-1）
// 渲染时作为实例颜色乘数使用
type Color struct {
	R float32
	G float32
	B float32
	A float32
}

// White 不修改贴图颜色的默认颜色
var White = Color{R: 1, G: 1, B: 1, A: 1}

// Lerp 在 c 与 target 之间线性插值
// t=0 返回 c，t=1 返回 target，t 超出 [0,1] 时会被截断
func (c Color) Lerp(target Color, t float32) Color {
	if t <= 0 {
		return c
	}
	if t >= 1 {
		return target
	}
	return Color{
		R: c.R + (target.R-c.R)*t,
		G: c.G + (target.G-c.G)*t,
		B: c.B + (target.B-c.B)*t,
		A: c.A + (target.A-c.A)*t,
	}
}
