package game

import (
	"io/fs"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/internal/curve"
	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/config"
	"github.com/decker502/danmaku/pkg/systems"
)

// LoadSets 根据配置创建所有弹幕集合
//
// 任一集合失败时，本次调用已创建的集合全部释放。
//
// 返回:
//   - []*EntitySet: 按配置顺序创建的集合
//   - error: 修改器构建或集合创建失败时返回错误
func (m *Manager) LoadSets(cfg *config.Config) ([]*EntitySet, error) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()

	created := make([]*EntitySet, 0, len(cfg.Sets))
	fail := func(err error) ([]*EntitySet, error) {
		for _, s := range created {
			s.Dispose()
		}
		return nil, err
	}

	for _, sc := range cfg.Sets {
		mods := make([]systems.Modifier, 0, len(sc.Modifiers))
		for j, mc := range sc.Modifiers {
			mod, err := m.BuildModifier(mc)
			if err != nil {
				closeModifiers(mods)
				return fail(eris.Wrapf(err, "set %q modifiers[%d]", sc.Name, j))
			}
			mods = append(mods, mod)
		}

		opts := []SetOption{WithModifiers(mods...)}
		if sc.Capacity > 0 {
			opts = append(opts, WithCapacity(sc.Capacity))
		}
		if sc.FixedCapacity {
			opts = append(opts, WithFixedCapacity())
		}
		set, err := m.createSet(sc.Name, renderConfigOf(sc), opts...)
		if err != nil {
			closeModifiers(mods)
			return fail(err)
		}
		created = append(created, set)
	}

	m.logger.Info("[Manager] sets loaded", zap.Int("count", len(created)))
	return created, nil
}

func renderConfigOf(sc config.SetConfig) components.RenderConfig {
	return components.RenderConfig{
		Mesh:           sc.Mesh,
		Sprite:         sc.Sprite,
		Material:       sc.Material,
		Layer:          sc.Layer,
		Scale:          sc.Scale,
		ColliderRadius: sc.ColliderRadius,
	}
}

func closeModifiers(mods []systems.Modifier) {
	for _, mod := range mods {
		if c, ok := mod.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

// BuildModifier 根据配置构建修改器
//
// lua 类型的脚本路径相对于 WithScriptFS 设置的文件系统解析；未设置时直接读取磁盘。
func (m *Manager) BuildModifier(mc config.ModifierConfig) (systems.Modifier, error) {
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	switch mc.Type {
	case config.ModifierAcceleration:
		return &systems.Acceleration{Rate: mc.Rate, MinSpeed: mc.MinSpeed, MaxSpeed: mc.MaxSpeed}, nil

	case config.ModifierAngularAcceleration:
		return &systems.AngularAcceleration{Rate: mc.Rate}, nil

	case config.ModifierColorFade:
		ease, _ := curve.EasingByName(mc.Easing)
		return &systems.ColorFade{
			Target:   components.Color{R: mc.Color[0], G: mc.Color[1], B: mc.Color[2], A: mc.Color[3]},
			Duration: mc.Duration,
			Easing:   ease,
		}, nil

	case config.ModifierLifetime:
		return &systems.Lifetime{MaxAge: mc.MaxAge}, nil

	case config.ModifierBoundsCull:
		return &systems.BoundsCull{Area: components.Bounds{
			Min: components.Vec2{X: mc.Area[0], Y: mc.Area[1]},
			Max: components.Vec2{X: mc.Area[2], Y: mc.Area[3]},
		}}, nil

	case config.ModifierCollisionResponse:
		return &systems.CollisionResponse{Mask: mc.Mask, Destroy: mc.Destroy}, nil

	case config.ModifierSpeedCurve:
		v, err := curve.Parse(mc.Curve)
		if err != nil {
			return nil, err
		}
		return &systems.SpeedCurve{Curve: v, Duration: mc.Duration}, nil

	case config.ModifierLua:
		stage := systems.StagePre
		if mc.Stage == "post" {
			stage = systems.StagePost
		}
		if m.scripts == nil {
			return systems.LoadLuaModifier(mc.Function, mc.Script, mc.Function, stage, m.logger)
		}
		src, err := fs.ReadFile(m.scripts, mc.Script)
		if err != nil {
			return nil, eris.Wrapf(err, "read lua script %s", mc.Script)
		}
		return systems.NewLuaModifier(mc.Function, string(src), mc.Function, stage, m.logger)
	}
	return nil, eris.Wrapf(config.ErrInvalidConfig, "unknown modifier type %q", mc.Type)
}
