package systems

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/ecs"
)

// DefaultBatchSize 数据并行阶段每个任务处理的下标区间大小
const DefaultBatchSize = 256

// PipelineConfig 更新管线配置
type PipelineConfig struct {
	BatchSize int // 每个并行任务的下标区间大小（<=0 时使用 DefaultBatchSize）
	Workers   int // 并发任务上限（<=0 时使用 GOMAXPROCS）
}

// FrameParams 单帧参数
type FrameParams struct {
	Dt             float32
	Frame          uint64
	ColliderRadius float32
	Scale          float32 // 渲染变换缩放（<=0 时使用池的缩放）
}

// StepStats 单个集合单帧的统计
type StepStats struct {
	Active           int // 压缩前的活跃数量
	Destroyed        int // 本帧压缩移除的数量
	Colliding        int // 碰撞掩码非零的实体数量
	ModifierFailures int
	Tasks            int // 派发的并行任务数
}

// Pipeline 弹幕集合的每帧更新管线
//
// 执行顺序：
//  1. pre 阶段修改器
//  2. 快照 old_position + 运动积分（数据并行）
//  3. 碰撞检测（数据并行，仅当存在障碍物）
//  4. post 阶段修改器
//  5. 刷新渲染变换（数据并行）
//  6. FlushDestroyed
//
// 并行任务之间只读写各自的下标区间，不加锁；只在阶段结束时汇合。
// Pipeline 本身无状态，可被多个集合并发使用。
type Pipeline struct {
	batchSize int
	workers   int
	registry  *ColliderRegistry
	logger    *zap.Logger
}

// NewPipeline 创建更新管线
//
// 参数:
//   - cfg: 管线配置
//   - registry: 碰撞体注册表（可为 nil，表示不做碰撞检测）
//   - logger: 日志记录器
func NewPipeline(cfg PipelineConfig, registry *ColliderRegistry, logger *zap.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		registry:  registry,
		logger:    logger,
	}
}

// Run 对一个实体池执行一帧更新
//
// 修改器失败只记录日志并计入 StepStats.ModifierFailures，不会中止管线。
// ctx 只在汇合点检查；取消时返回 ctx.Err()，此时本帧不执行压缩。
func (p *Pipeline) Run(ctx context.Context, pool *ecs.EntityPool, mods []Modifier, params FrameParams) (StepStats, error) {
	var stats StepStats
	if pool.Disposed() {
		return stats, ecs.ErrPoolDisposed
	}
	mctx := &ModifierContext{Pool: pool, Dt: params.Dt, Frame: params.Frame, Logger: p.logger}

	// 1. pre 阶段
	stats.ModifierFailures += p.runStage(StagePre, mods, mctx)

	// 2. 快照 + 积分
	cols := pool.Columns()
	dt := params.Dt
	n, err := p.parallel(ctx, cols.Len(), func(lo, hi int) error {
		integrate(cols, lo, hi, dt)
		return nil
	})
	stats.Tasks += n
	if err != nil {
		return stats, err
	}

	// 3. 碰撞
	if p.registry != nil && p.registry.Count() > 0 {
		radius := params.ColliderRadius
		reg := p.registry
		n, err = p.parallel(ctx, cols.Len(), func(lo, hi int) error {
			collide(cols, lo, hi, reg, radius)
			return nil
		})
		stats.Tasks += n
		if err != nil {
			return stats, err
		}
	} else {
		clear(cols.CollisionMasks)
	}
	for _, m := range cols.CollisionMasks {
		if m != 0 {
			stats.Colliding++
		}
	}

	// 4. post 阶段
	stats.ModifierFailures += p.runStage(StagePost, mods, mctx)

	// 5. 刷新变换（修改器可能创建了新实体，重新取列）
	cols = pool.Columns()
	scale := params.Scale
	if scale <= 0 {
		scale = pool.Scale()
	}
	n, err = p.parallel(ctx, cols.Len(), func(lo, hi int) error {
		refreshTransforms(cols, lo, hi, scale)
		return nil
	})
	stats.Tasks += n
	if err != nil {
		return stats, err
	}

	// 6. 压缩
	stats.Active = pool.ActiveCount()
	removed, err := pool.FlushDestroyed()
	if err != nil {
		return stats, eris.Wrap(err, "flush destroyed")
	}
	stats.Destroyed = removed
	return stats, nil
}

// runStage 按列表顺序执行指定阶段的修改器，返回失败数量
func (p *Pipeline) runStage(stage Stage, mods []Modifier, mctx *ModifierContext) int {
	failures := 0
	for _, m := range mods {
		if m.Stage() != stage {
			continue
		}
		if err := applyModifier(m, mctx); err != nil {
			failures++
			p.logger.Warn("[Pipeline] modifier failed",
				zap.String("modifier", m.Name()),
				zap.Stringer("stage", stage),
				zap.Uint64("frame", mctx.Frame),
				zap.Error(err))
		}
	}
	return failures
}

// parallel 把 [0, n) 切分为 batchSize 大小的区间并发执行 fn，全部完成后返回
//
// 只有一个区间时直接在当前 goroutine 执行。任一区间返回错误时返回第一个错误。
func (p *Pipeline) parallel(ctx context.Context, n int, fn func(lo, hi int) error) (int, error) {
	if n == 0 {
		return 0, ctx.Err()
	}
	if n <= p.batchSize {
		if err := fn(0, n); err != nil {
			return 1, err
		}
		return 1, ctx.Err()
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	tasks := 0
	for lo := 0; lo < n; lo += p.batchSize {
		hi := min(lo+p.batchSize, n)
		g.Go(func() error {
			return fn(lo, hi)
		})
		tasks++
	}
	if err := g.Wait(); err != nil {
		return tasks, err
	}
	return tasks, ctx.Err()
}

// integrate 快照旧位置并积分运动
func integrate(c ecs.Columns, lo, hi int, dt float32) {
	for i := lo; i < hi; i++ {
		c.OldPositions[i] = c.Positions[i]
		c.Rotations[i] += c.AngularSpeeds[i] * dt
		dir := components.Direction(c.Rotations[i])
		c.Positions[i] = c.Positions[i].Add(dir.Scale(c.Speeds[i] * dt))
		c.Ages[i] += dt
	}
}

func collide(c ecs.Columns, lo, hi int, reg *ColliderRegistry, radius float32) {
	for i := lo; i < hi; i++ {
		c.CollisionMasks[i] = reg.Test(components.SweptBounds(c.OldPositions[i], c.Positions[i], radius))
	}
}

func refreshTransforms(c ecs.Columns, lo, hi int, scale float32) {
	for i := lo; i < hi; i++ {
		c.Transforms[i] = components.TRS(c.Positions[i], c.Rotations[i], scale)
	}
}
