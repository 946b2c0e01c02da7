package components

import "math"

// Bounds 轴对齐边界框（AABB）
// 用于宽相位碰撞检测：子弹的扫掠包围盒与障碍物包围盒之间的粗略相交测试
//
// Min 为左上角，Max 为右下角（世界坐标）
type Bounds struct {
	Min Vec2
	Max Vec2
}

// EmptyBounds 返回一个空包围盒
// 空包围盒是 Union 的单位元：EmptyBounds().Union(b) == b
func EmptyBounds() Bounds {
	inf := float32(math.Inf(1))
	return Bounds{
		Min: Vec2{X: inf, Y: inf},
		Max: Vec2{X: -inf, Y: -inf},
	}
}

// NewBounds 根据中心点和尺寸创建包围盒（中心对齐）
func NewBounds(center Vec2, width, height float32) Bounds {
	return Bounds{
		Min: Vec2{X: center.X - width/2, Y: center.Y - height/2},
		Max: Vec2{X: center.X + width/2, Y: center.Y + height/2},
	}
}

// IsEmpty 检查包围盒是否为空（Min 在任一轴上大于 Max）
func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y
}

// Intersects 检查两个包围盒是否重叠
// 边缘接触也视为相交；任一为空时返回 false
//
// 参数:
//   - o: 另一个包围盒
//
// 返回:
//   - bool: 如果两个包围盒重叠返回 true，否则返回 false
func (b Bounds) Intersects(o Bounds) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	// 如果任一轴上没有重叠，则没有碰撞
	return b.Max.X >= o.Min.X &&
		b.Min.X <= o.Max.X &&
		b.Max.Y >= o.Min.Y &&
		b.Min.Y <= o.Max.Y
}

// Contains 检查点是否位于包围盒内（含边界）
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Union 返回同时包含 b 和 o 的最小包围盒
func (b Bounds) Union(o Bounds) Bounds {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return Bounds{
		Min: Vec2{X: min(b.Min.X, o.Min.X), Y: min(b.Min.Y, o.Min.Y)},
		Max: Vec2{X: max(b.Max.X, o.Max.X), Y: max(b.Max.Y, o.Max.Y)},
	}
}

// Expand 向四周扩展 r
func (b Bounds) Expand(r float32) Bounds {
	if b.IsEmpty() {
		return b
	}
	return Bounds{
		Min: Vec2{X: b.Min.X - r, Y: b.Min.Y - r},
		Max: Vec2{X: b.Max.X + r, Y: b.Max.Y + r},
	}
}

// SweptBounds 计算半径为 radius 的圆从 from 移动到 to 所扫过区域的包围盒
//
// 碰撞系统使用上一帧位置(old_position)和本帧位置构建扫掠包围盒，
// 避免高速子弹在两帧之间"穿过"薄障碍物
func SweptBounds(from, to Vec2, radius float32) Bounds {
	return Bounds{
		Min: Vec2{X: min(from.X, to.X) - radius, Y: min(from.Y, to.Y) - radius},
		Max: Vec2{X: max(from.X, to.X) + radius, Y: max(from.Y, to.Y) + radius},
	}
}
