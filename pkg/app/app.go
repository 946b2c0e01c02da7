// Package app 提供弹幕演示程序的 ebiten.Game 包装器
//
// 该包把帧驱动逻辑从 main 包提取出来：每个 tick 推进一次模拟，每次绘制提交一次渲染。
package app

import (
	"context"
	"fmt"
	"image/color"
	"io/fs"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/quasilyte/gdata/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/config"
	"github.com/decker502/danmaku/pkg/game"
	"github.com/decker502/danmaku/pkg/render"
	"github.com/decker502/danmaku/pkg/systems"
)

// 固定步长（秒）
const tickDt = 1.0 / 60

// obstacleLayer 障碍物所在的碰撞层（与配置中 collision_response 的 mask 0x2 对应）
const obstacleLayer = 1

// Config 定义应用启动配置
type Config struct {
	Config  *config.Config
	Scripts fs.FS          // Lua 修改器脚本所在的文件系统
	Gdata   *gdata.Manager // 设置持久化，可为 nil
	Logger  *zap.Logger
}

// App 弹幕演示程序，实现 ebiten.Game 接口
type App struct {
	cfg       *config.Config
	manager   *game.Manager
	settings  *game.SettingsManager
	submitter *render.EbitenSubmitter
	emitter   emitter
	obstacle  *obstacle
	stats     game.FrameStats
	logger    *zap.Logger
}

// NewApp 创建并初始化演示程序
func NewApp(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := game.NewManager(cfg.Config.Simulation,
		game.WithLogger(logger),
		game.WithScriptFS(cfg.Scripts))
	if _, err := m.LoadSets(cfg.Config); err != nil {
		m.Close()
		return nil, eris.Wrap(err, "load sets")
	}

	w, h := float32(cfg.Config.Window.Width), float32(cfg.Config.Window.Height)
	obs := newObstacle(components.Vec2{X: w / 2, Y: h * 0.8}, 120, 16, w*0.35)
	id, err := m.RegisterCollider(obs.bounds(0), obstacleLayer)
	if err != nil {
		m.Close()
		return nil, eris.Wrap(err, "register obstacle")
	}
	obs.id = id

	settings := game.NewSettingsManager(cfg.Gdata, logger)
	a := &App{
		cfg:       cfg.Config,
		manager:   m,
		settings:  settings,
		submitter: render.NewEbitenSubmitter(render.DefaultImages(), logger),
		emitter:   emitter{interval: settings.Settings().FireInterval},
		obstacle:  obs,
		logger:    logger,
	}
	logger.Info("[App] initialized",
		zap.Int("sets", len(m.Sets())),
		zap.String("pattern", settings.Settings().Pattern))
	return a, nil
}

// Update 更新模拟
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	a.handleInput()
	s := a.settings.Settings()
	if s.Paused {
		return nil
	}

	a.emitter.interval = s.FireInterval
	for range a.emitter.advance(tickDt) {
		a.fire()
	}

	a.obstacle.advance(tickDt)
	if err := a.manager.UpdateCollider(a.obstacle.id, a.obstacle.bounds(a.obstacle.t)); err != nil {
		return err
	}

	stats, err := a.manager.Tick(context.Background(), tickDt)
	if err != nil {
		return err
	}
	a.stats = stats
	return nil
}

func (a *App) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		a.settings.TogglePaused()
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		a.settings.CyclePattern()
	case inpututil.IsKeyJustPressed(ebiten.KeyO):
		a.settings.ToggleOverlay()
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		a.settings.SetRingCount(a.settings.Settings().RingCount + 4)
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		a.settings.SetRingCount(a.settings.Settings().RingCount - 4)
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		for _, set := range a.manager.Sets() {
			_ = set.Clear()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF11):
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	for i, key := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3} {
		if inpututil.IsKeyJustPressed(key) {
			a.settings.ToggleLayer(i)
		}
	}
}

// fire 按当前图案发射一轮
func (a *App) fire() {
	s := a.settings.Settings()
	w, h := float32(a.cfg.Window.Width), float32(a.cfg.Window.Height)
	center := components.Vec2{X: w / 2, Y: h * 0.3}
	phase := float32(a.emitter.shots) * 0.17

	var err error
	switch s.Pattern {
	case game.PatternSpread:
		if set, ok := a.manager.Set("spread"); ok {
			_, err = game.FireSpread(set, game.SpreadPattern{
				Origin:    center,
				Count:     7,
				Direction: math.Pi/2 + float32(math.Sin(float64(phase)))*0.6,
				Arc:       math.Pi / 3,
				Speed:     240,
				Color:     components.Color{R: 0.4, G: 0.9, B: 1, A: 1},
			})
		}
	default:
		if set, ok := a.manager.Set("ring"); ok {
			_, err = game.FireRing(set, game.RingPattern{
				Center: center,
				Count:  s.RingCount,
				Speed:  80,
				Offset: phase,
				Color:  components.Color{R: 1, G: 0.85, B: 0.3, A: 1},
			})
		}
		if set, ok := a.manager.Set("spiral"); ok && err == nil {
			_, err = game.FireRing(set, game.RingPattern{
				Center:       center,
				Count:        4,
				Speed:        120,
				AngularSpeed: 0.8,
				Offset:       -phase,
				Color:        components.Color{R: 0.8, G: 0.4, B: 1, A: 1},
			})
		}
	}
	if err != nil {
		a.logger.Warn("[App] fire failed", zap.String("pattern", s.Pattern), zap.Error(err))
	}
}

// Draw 绘制画面
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 12, G: 10, B: 24, A: 255})

	b := a.obstacle.bounds(a.obstacle.t)
	vector.DrawFilledRect(screen, b.Min.X, b.Min.Y, b.Max.X-b.Min.X, b.Max.Y-b.Min.Y,
		color.RGBA{R: 90, G: 90, B: 120, A: 255}, false)

	s := a.settings.Settings()
	a.submitter.SetTarget(screen)
	bs, err := a.manager.Render(s.CameraMask, a.submitter)
	if err != nil {
		a.logger.Error("[App] render failed", zap.Error(err))
	}

	if s.ShowOverlay {
		ebitenutil.DebugPrint(screen, fmt.Sprintf(
			"TPS %.0f  FPS %.0f\nframe %d  active %d  colliding %d\ntick %s  batches %d  instances %d\npattern %s  ring %d  layers %03b\n[space] pause [p] pattern [o] overlay [1-3] layers [c] clear",
			ebiten.ActualTPS(), ebiten.ActualFPS(),
			a.stats.Frame, a.stats.Active, a.stats.Colliding,
			a.stats.Duration, bs.Batches, bs.Instances,
			s.Pattern, s.RingCount, s.CameraMask&0b111))
	}
}

// Layout 返回逻辑屏幕尺寸
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.cfg.Window.Width, a.cfg.Window.Height
}

// Close 保存设置并释放所有弹幕集合
func (a *App) Close() error {
	err := a.settings.Save()
	a.manager.Close()
	return err
}

// emitter 固定间隔的发射计时器
type emitter struct {
	interval float32
	acc      float32
	shots    int
}

// advance 推进计时器，返回本次应发射的轮数
func (e *emitter) advance(dt float32) int {
	if e.interval <= 0 {
		return 0
	}
	e.acc += dt
	n := 0
	for e.acc >= e.interval {
		e.acc -= e.interval
		n++
	}
	e.shots += n
	return n
}

// obstacle 左右往返移动的障碍物
type obstacle struct {
	id            systems.ColliderID
	center        components.Vec2
	width, height float32
	amplitude     float32
	t             float32
}

func newObstacle(center components.Vec2, width, height, amplitude float32) *obstacle {
	return &obstacle{center: center, width: width, height: height, amplitude: amplitude}
}

func (o *obstacle) advance(dt float32) { o.t += dt }

// bounds 返回 t 时刻的包围盒
func (o *obstacle) bounds(t float32) components.Bounds {
	x := o.center.X + o.amplitude*float32(math.Sin(float64(t)*0.8))
	return components.NewBounds(components.Vec2{X: x, Y: o.center.Y}, o.width, o.height)
}
