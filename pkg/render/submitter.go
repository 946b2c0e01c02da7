// Package render 把弹幕批次提交给 Ebiten 绘制
package render

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/systems"
)

// MaterialAdditive 加法混合材质（发光效果）
const MaterialAdditive = "additive"

// additiveBlend 加法混合模式
var additiveBlend = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorOne,
	BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
	BlendOperationRGB:           ebiten.BlendOperationAdd,
	BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
	BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
	BlendOperationAlpha:         ebiten.BlendOperationAdd,
}

// EbitenSubmitter 用 DrawTriangles 绘制批次
//
// 每个实例生成 4 个顶点（2 个三角形组成矩形），矩形以贴图尺寸为大小、
// 以实例变换矩阵定位。一个批次对应一次 DrawTriangles 调用。
// 顶点和索引数组在批次之间复用。
type EbitenSubmitter struct {
	target   *ebiten.Image
	images   map[string]*ebiten.Image // 资源ID → 贴图（Sprite 优先，其次 Mesh）
	vertices []ebiten.Vertex
	indices  []uint16
	missing  map[string]bool // 已报告过的缺失资源
	logger   *zap.Logger
}

var _ systems.Submitter = (*EbitenSubmitter)(nil)

// NewEbitenSubmitter 创建提交器
//
// 参数:
//   - images: 资源ID到贴图的映射
//   - logger: 日志记录器，可为 nil
func NewEbitenSubmitter(images map[string]*ebiten.Image, logger *zap.Logger) *EbitenSubmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EbitenSubmitter{
		images:   images,
		vertices: make([]ebiten.Vertex, 0, systems.DefaultMaxBatchSize*4),
		indices:  make([]uint16, 0, systems.DefaultMaxBatchSize*6),
		missing:  make(map[string]bool),
		logger:   logger,
	}
}

// SetTarget 设置本帧的绘制目标
func (s *EbitenSubmitter) SetTarget(screen *ebiten.Image) {
	s.target = screen
}

// Submit 绘制一个批次
//
// 资源不存在时跳过该批次（每个资源只警告一次），不视为错误。
func (s *EbitenSubmitter) Submit(req systems.BatchRequest) error {
	if s.target == nil || req.Count == 0 {
		return nil
	}
	id := req.Sprite
	if id == "" {
		id = req.Mesh
	}
	img, ok := s.images[id]
	if !ok || img == nil {
		if !s.missing[id] {
			s.missing[id] = true
			s.logger.Warn("[EbitenSubmitter] image not found, batch skipped", zap.String("id", id))
		}
		return nil
	}

	s.vertices = s.vertices[:0]
	s.indices = s.indices[:0]
	src := img.Bounds()
	for i := 0; i < req.Count; i++ {
		s.vertices, s.indices = appendQuad(s.vertices, s.indices, &req.Transforms[i], req.Colors[i], src)
	}

	op := &ebiten.DrawTrianglesOptions{}
	op.Blend = blendFor(req.Material)
	s.target.DrawTriangles(s.vertices, s.indices, img, op)
	return nil
}

// blendFor 根据材质选择混合模式，未知材质使用普通 Alpha 混合
func blendFor(material string) ebiten.Blend {
	if material == MaterialAdditive {
		return additiveBlend
	}
	return ebiten.BlendSourceOver
}

// appendQuad 为一个实例追加 4 个顶点和 6 个索引
//
// 参数:
//   - m: 实例变换（局部坐标以贴图中心为原点，单位为像素）
//   - c: 顶点颜色
//   - src: 贴图源矩形
func appendQuad(vs []ebiten.Vertex, is []uint16, m *components.Matrix4, c components.Color, src image.Rectangle) ([]ebiten.Vertex, []uint16) {
	hw := float32(src.Dx()) / 2
	hh := float32(src.Dy()) / 2
	sx0, sy0 := float32(src.Min.X), float32(src.Min.Y)
	sx1, sy1 := float32(src.Max.X), float32(src.Max.Y)

	// 左上、右上、左下、右下
	corners := [4]components.Vec2{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: -hw, Y: hh}, {X: hw, Y: hh}}
	srcs := [4][2]float32{{sx0, sy0}, {sx1, sy0}, {sx0, sy1}, {sx1, sy1}}

	base := uint16(len(vs))
	for i, corner := range corners {
		p := m.TransformPoint(corner)
		vs = append(vs, ebiten.Vertex{
			DstX:   p.X,
			DstY:   p.Y,
			SrcX:   srcs[i][0],
			SrcY:   srcs[i][1],
			ColorR: c.R,
			ColorG: c.G,
			ColorB: c.B,
			ColorA: c.A,
		})
	}
	is = append(is,
		base+0, base+1, base+2,
		base+1, base+3, base+2,
	)
	return vs, is
}
