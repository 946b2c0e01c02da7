package components

import "math"

// Matrix4 4x4 变换矩阵，列主序存储（与实例化渲染后端的约定一致）
//
//	| m[0] m[4] m[8]  m[12] |
//	| m[1] m[5] m[9]  m[13] |
//	| m[2] m[6] m[10] m[14] |
//	| m[3] m[7] m[11] m[15] |
type Matrix4 [16]float32

// Identity 返回单位矩阵
func Identity() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// TRS 构建 平移 * 绕Z轴旋转 * 均匀缩放 矩阵
//
// 参数:
//   - pos: 世界坐标位置
//   - rotation: 旋转角度（弧度）
//   - scale: 均匀缩放倍数（1.0 = 原始大小）
func TRS(pos Vec2, rotation, scale float32) Matrix4 {
	s, c := math.Sincos(float64(rotation))
	cs := float32(c) * scale
	sn := float32(s) * scale
	return Matrix4{
		cs, sn, 0, 0,
		-sn, cs, 0, 0,
		0, 0, scale, 0,
		pos.X, pos.Y, 0, 1,
	}
}

// TransformPoint 用矩阵变换二维点（z=0, w=1）
func (m *Matrix4) TransformPoint(p Vec2) Vec2 {
	return Vec2{
		X: m[0]*p.X + m[4]*p.Y + m[12],
		Y: m[1]*p.X + m[5]*p.Y + m[13],
	}
}

// Translation 返回矩阵的平移分量
func (m *Matrix4) Translation() Vec2 {
	return Vec2{X: m[12], Y: m[13]}
}
