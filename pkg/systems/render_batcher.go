package systems

import (
	"github.com/rotisserie/eris"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/ecs"
)

// DefaultMaxBatchSize 单个实例化绘制批次的实例数上限
const DefaultMaxBatchSize = 1023

// BatchRequest 一次实例化绘制请求
//
// Transforms 和 Colors 指向批处理器的暂存缓冲区，只在 Submit 调用期间有效；
// 需要保留数据的后端必须自行复制。
type BatchRequest struct {
	Mesh       string
	Sprite     string
	Material   string
	Layer      int
	Transforms []components.Matrix4
	Colors     []components.Color
	Count      int
}

// Submitter 渲染后端提交接口
type Submitter interface {
	Submit(req BatchRequest) error
}

// SubmitterFunc 把函数适配为 Submitter
type SubmitterFunc func(req BatchRequest) error

func (f SubmitterFunc) Submit(req BatchRequest) error { return f(req) }

// RenderGroup 共享同一渲染配置的一组实体池
type RenderGroup struct {
	Config components.RenderConfig
	Pools  []*ecs.EntityPool
}

// BatchStats 渲染统计
type BatchStats struct {
	Groups    int // 实际渲染的分组数
	Batches   int // 提交的批次数
	Instances int // 提交的实例总数
}

// RenderBatcher 把实体数据按固定大小分块复制到暂存缓冲区并逐块提交
//
// 渲染流程：
// 1. 跳过图层不在摄像机掩码中的分组
// 2. 按池顺序、池内活跃顺序遍历实体（不做深度排序）
// 3. 每满 maxBatch 个实例提交一次，分组结束时提交剩余部分
//
// 批次不会跨越分组，但可以跨越同一分组内的多个池。
// 批处理器只读取实体数据，不做任何修改。暂存缓冲区在各次调用之间复用，
// 因此 RenderBatcher 不可并发使用。
type RenderBatcher struct {
	maxBatch   int
	transforms []components.Matrix4
	colors     []components.Color
}

// NewRenderBatcher 创建渲染批处理器
//
// 参数:
//   - maxBatch: 单批实例数上限（<=0 或超过 DefaultMaxBatchSize 时使用 DefaultMaxBatchSize）
func NewRenderBatcher(maxBatch int) *RenderBatcher {
	if maxBatch <= 0 || maxBatch > DefaultMaxBatchSize {
		maxBatch = DefaultMaxBatchSize
	}
	return &RenderBatcher{
		maxBatch:   maxBatch,
		transforms: make([]components.Matrix4, maxBatch),
		colors:     make([]components.Color, maxBatch),
	}
}

// MaxBatch 返回单批实例数上限
func (b *RenderBatcher) MaxBatch() int { return b.maxBatch }

// Render 渲染所有分组
//
// 参数:
//   - groups: 渲染分组（按顺序处理）
//   - cameraMask: 摄像机可见图层掩码
//   - sub: 渲染后端
//
// 返回:
//   - BatchStats: 统计
//   - error: 后端返回错误时立即停止并返回包装后的错误
func (b *RenderBatcher) Render(groups []RenderGroup, cameraMask uint32, sub Submitter) (BatchStats, error) {
	var stats BatchStats
	for gi := range groups {
		g := &groups[gi]
		if g.Config.Layer < 0 || g.Config.Layer >= components.MaxLayers {
			continue
		}
		if cameraMask&(1<<uint(g.Config.Layer)) == 0 {
			continue
		}
		stats.Groups++

		fill := 0
		for _, pool := range g.Pools {
			if pool == nil || pool.Disposed() {
				continue
			}
			cols := pool.Columns()
			for off := 0; off < cols.Len(); {
				n := copy(b.transforms[fill:], cols.Transforms[off:])
				copy(b.colors[fill:fill+n], cols.Colors[off:off+n])
				fill += n
				off += n
				if fill == b.maxBatch {
					if err := b.submit(g, fill, sub, &stats); err != nil {
						return stats, err
					}
					fill = 0
				}
			}
		}
		if fill > 0 {
			if err := b.submit(g, fill, sub, &stats); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

func (b *RenderBatcher) submit(g *RenderGroup, n int, sub Submitter, stats *BatchStats) error {
	req := BatchRequest{
		Mesh:       g.Config.Mesh,
		Sprite:     g.Config.Sprite,
		Material:   g.Config.Material,
		Layer:      g.Config.Layer,
		Transforms: b.transforms[:n],
		Colors:     b.colors[:n],
		Count:      n,
	}
	if err := sub.Submit(req); err != nil {
		return eris.Wrapf(err, "submit batch (layer %d, %d instances)", g.Config.Layer, n)
	}
	stats.Batches++
	stats.Instances += n
	return nil
}
