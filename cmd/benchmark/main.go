// Benchmark 无窗口运行弹幕模拟并统计每帧耗时
//
// Profiling:
// go build ./cmd/benchmark
// ./benchmark -profile cpu
// go tool pprof -http=":8000" ./benchmark cpu.pprof
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/config"
	"github.com/decker502/danmaku/pkg/game"
	"github.com/decker502/danmaku/pkg/logger"
	"github.com/decker502/danmaku/pkg/systems"
)

var (
	setsFlag      = flag.Int("sets", 4, "弹幕集合数量")
	bulletsFlag   = flag.Int("bullets", 25000, "每个集合的弹幕数量")
	framesFlag    = flag.Int("frames", 600, "模拟帧数")
	workersFlag   = flag.Int("workers", 0, "并发任务上限（0 = GOMAXPROCS）")
	batchFlag     = flag.Int("batch", systems.DefaultBatchSize, "每个并行任务的下标区间大小")
	obstaclesFlag = flag.Int("obstacles", 16, "障碍物数量")
	profileFlag   = flag.String("profile", "", "性能分析模式: cpu / mem / 空")
	jsonFlag      = flag.Bool("json", false, "JSON 格式日志")
)

func main() {
	flag.Parse()

	logCfg := config.Defaults().Logging
	if *jsonFlag {
		logCfg.Format = "json"
	}
	log := logger.Must(logCfg)
	defer func() { _ = log.Sync() }()

	switch *profileFlag {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "":
	default:
		log.Fatal("[Benchmark] unknown profile mode", zap.String("profile", *profileFlag))
	}

	cfg := config.Defaults().Simulation
	cfg.Workers = *workersFlag
	cfg.BatchSize = *batchFlag
	cfg.InitialCapacity = *bulletsFlag
	cfg.FrameBudget = 0

	m := game.NewManager(cfg, game.WithLogger(log))
	defer m.Close()

	if err := setup(m, *setsFlag, *bulletsFlag, *obstaclesFlag); err != nil {
		log.Fatal("[Benchmark] setup failed", zap.Error(err))
	}

	durations, err := run(m, *framesFlag)
	if err != nil {
		log.Fatal("[Benchmark] run failed", zap.Error(err))
	}

	stats, err := m.Render(^uint32(0), systems.SubmitterFunc(func(systems.BatchRequest) error { return nil }))
	if err != nil {
		log.Fatal("[Benchmark] render failed", zap.Error(err))
	}

	slices.Sort(durations)
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	n := len(durations)
	log.Info("[Benchmark] done",
		zap.Int("sets", *setsFlag),
		zap.Int("bulletsPerSet", *bulletsFlag),
		zap.Int("frames", n),
		zap.Duration("avg", total/time.Duration(max(n, 1))),
		zap.Duration("p50", percentile(durations, 0.50)),
		zap.Duration("p99", percentile(durations, 0.99)),
		zap.Duration("max", percentile(durations, 1)),
		zap.Int("renderBatches", stats.Batches),
		zap.Int("renderInstances", stats.Instances))
}

// setup 创建集合并填满弹幕
// 弹幕绕中心旋转并向外移动，永不离开；障碍物沿圆周分布
func setup(m *game.Manager, sets, bullets, obstacles int) error {
	for i := range obstacles {
		a := 2 * math.Pi * float64(i) / float64(max(obstacles, 1))
		center := components.Vec2{X: float32(math.Cos(a)) * 400, Y: float32(math.Sin(a)) * 400}
		if _, err := m.RegisterCollider(components.NewBounds(center, 40, 40), i%4); err != nil {
			return err
		}
	}

	for i := range sets {
		set, err := m.CreateSet(fmt.Sprintf("set-%d", i),
			components.RenderConfig{Mesh: "quad", Material: "additive", Layer: i % 4, ColliderRadius: 2},
			game.WithModifiers(
				&systems.AngularAcceleration{Rate: 0.01},
				&systems.CollisionResponse{Mask: ^uint32(0)},
				&systems.ColorFade{Target: components.Color{A: 1}, Duration: 10},
			))
		if err != nil {
			return err
		}
		_, err = game.FireRing(set, game.RingPattern{
			Count:        bullets,
			Speed:        20,
			AngularSpeed: 0.5,
			Color:        components.White,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func run(m *game.Manager, frames int) ([]time.Duration, error) {
	ctx := context.Background()
	durations := make([]time.Duration, 0, frames)
	for range frames {
		stats, err := m.Tick(ctx, 1.0/60)
		if err != nil {
			return durations, err
		}
		durations = append(durations, stats.Duration)
	}
	return durations, nil
}

// percentile 返回已排序样本的分位数
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(math.Ceil(p*float64(len(sorted)))) - 1
	return sorted[min(max(i, 0), len(sorted)-1)]
}
