package config

import (
	"github.com/rotisserie/eris"

	"github.com/decker502/danmaku/internal/curve"
)

const (
	maxLayers = 32

	// maxRenderBatchSize 单个实例化绘制批次的实例数上限
	maxRenderBatchSize = 1023
)

// Validate 验证配置的有效性
//
// 返回:
//   - error: 包装了 ErrInvalidConfig 的错误，描述第一个无效字段
func (c *Config) Validate() error {
	s := c.Simulation
	if s.InitialCapacity < 0 {
		return eris.Wrapf(ErrInvalidConfig, "simulation.initialCapacity must be >= 0, got %d", s.InitialCapacity)
	}
	if s.BatchSize < 0 {
		return eris.Wrapf(ErrInvalidConfig, "simulation.batchSize must be >= 0, got %d", s.BatchSize)
	}
	if s.Workers < 0 {
		return eris.Wrapf(ErrInvalidConfig, "simulation.workers must be >= 0, got %d", s.Workers)
	}
	if s.FrameBudget < 0 {
		return eris.Wrapf(ErrInvalidConfig, "simulation.frameBudget must be >= 0, got %s", s.FrameBudget)
	}
	if s.RenderBatchSize < 0 || s.RenderBatchSize > maxRenderBatchSize {
		return eris.Wrapf(ErrInvalidConfig, "simulation.renderBatchSize must be in [0, %d], got %d", maxRenderBatchSize, s.RenderBatchSize)
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return eris.Wrapf(ErrInvalidConfig, "window size %dx%d", c.Window.Width, c.Window.Height)
	}

	seen := make(map[string]bool, len(c.Sets))
	for i := range c.Sets {
		set := &c.Sets[i]
		if set.Name == "" {
			return eris.Wrapf(ErrInvalidConfig, "sets[%d]: name is required", i)
		}
		if seen[set.Name] {
			return eris.Wrapf(ErrInvalidConfig, "sets[%d]: duplicate name %q", i, set.Name)
		}
		seen[set.Name] = true
		if err := set.Validate(); err != nil {
			return eris.Wrapf(err, "sets[%d] %q", i, set.Name)
		}
	}
	return nil
}

// Validate 校验单个集合配置
func (s *SetConfig) Validate() error {
	if s.Mesh == "" && s.Sprite == "" {
		return eris.Wrap(ErrInvalidConfig, "mesh or sprite is required")
	}
	if s.Layer < 0 || s.Layer >= maxLayers {
		return eris.Wrapf(ErrInvalidConfig, "layer %d out of range [0, %d)", s.Layer, maxLayers)
	}
	if s.Scale < 0 || s.ColliderRadius < 0 || s.Capacity < 0 {
		return eris.Wrap(ErrInvalidConfig, "scale, colliderRadius and capacity must be >= 0")
	}
	for j := range s.Modifiers {
		if err := s.Modifiers[j].Validate(); err != nil {
			return eris.Wrapf(err, "modifiers[%d]", j)
		}
	}
	return nil
}

// Validate 校验修改器配置
func (m *ModifierConfig) Validate() error {
	switch m.Type {
	case ModifierAcceleration:
		if m.MaxSpeed != 0 && m.MaxSpeed < m.MinSpeed {
			return eris.Wrapf(ErrInvalidConfig, "acceleration: maxSpeed %v < minSpeed %v", m.MaxSpeed, m.MinSpeed)
		}
	case ModifierAngularAcceleration:
	case ModifierColorFade:
		if len(m.Color) != 4 {
			return eris.Wrapf(ErrInvalidConfig, "color_fade: color needs 4 components, got %d", len(m.Color))
		}
		if m.Duration <= 0 {
			return eris.Wrap(ErrInvalidConfig, "color_fade: duration must be > 0")
		}
		if _, ok := curve.EasingByName(m.Easing); !ok {
			return eris.Wrapf(ErrInvalidConfig, "color_fade: unknown easing %q", m.Easing)
		}
	case ModifierLifetime:
		if m.MaxAge <= 0 {
			return eris.Wrap(ErrInvalidConfig, "lifetime: maxAge must be > 0")
		}
	case ModifierBoundsCull:
		if len(m.Area) != 4 {
			return eris.Wrapf(ErrInvalidConfig, "bounds_cull: area needs 4 numbers, got %d", len(m.Area))
		}
		if m.Area[2] < m.Area[0] || m.Area[3] < m.Area[1] {
			return eris.Wrap(ErrInvalidConfig, "bounds_cull: area max < min")
		}
	case ModifierCollisionResponse:
		if m.Mask == 0 {
			return eris.Wrap(ErrInvalidConfig, "collision_response: mask must be non-zero")
		}
	case ModifierSpeedCurve:
		if _, err := curve.Parse(m.Curve); err != nil {
			return eris.Wrapf(ErrInvalidConfig, "speed_curve: %v", err)
		}
		if m.Duration <= 0 {
			return eris.Wrap(ErrInvalidConfig, "speed_curve: duration must be > 0")
		}
	case ModifierLua:
		if m.Script == "" || m.Function == "" {
			return eris.Wrap(ErrInvalidConfig, "lua: script and function are required")
		}
		if m.Stage != "" && m.Stage != "pre" && m.Stage != "post" {
			return eris.Wrapf(ErrInvalidConfig, "lua: unknown stage %q", m.Stage)
		}
	default:
		return eris.Wrapf(ErrInvalidConfig, "unknown modifier type %q", m.Type)
	}
	return nil
}
