package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// NewOrbImage 生成圆形弹幕贴图（白色实心圆 + 柔和外圈）
// 颜色由顶点颜色决定，贴图本身保持白色
func NewOrbImage(radius float32) *ebiten.Image {
	size := int(radius*2) + 2
	img := ebiten.NewImage(size, size)
	c := float32(size) / 2
	vector.DrawFilledCircle(img, c, c, radius, color.RGBA{R: 255, G: 255, B: 255, A: 96}, true)
	vector.DrawFilledCircle(img, c, c, radius*0.6, color.White, true)
	return img
}

// NewNeedleImage 生成细长的针形贴图，长边沿 X 轴（与移动方向一致）
func NewNeedleImage(length, width float32) *ebiten.Image {
	img := ebiten.NewImage(int(length)+2, int(width)+2)
	vector.DrawFilledRect(img, 1, 1, length, width, color.White, true)
	return img
}

// DefaultImages 演示程序使用的内置贴图
func DefaultImages() map[string]*ebiten.Image {
	return map[string]*ebiten.Image{
		"orb":    NewOrbImage(6),
		"needle": NewNeedleImage(14, 3),
	}
}
