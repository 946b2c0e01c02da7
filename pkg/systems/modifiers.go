package systems

import (
	"github.com/decker502/danmaku/internal/curve"
	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/ecs"
)

// Acceleration 线性加速：speed += Rate*dt，结果截断到 [MinSpeed, MaxSpeed]
// MinSpeed 和 MaxSpeed 都为 0 时不截断；只有 MaxSpeed 为 0 时没有上限
type Acceleration struct {
	Rate     float32
	MinSpeed float32
	MaxSpeed float32
}

func (a *Acceleration) Name() string { return "acceleration" }
func (a *Acceleration) Stage() Stage { return StagePre }

func (a *Acceleration) Apply(ctx *ModifierContext) error {
	speeds := ctx.Pool.Columns().Speeds
	delta := a.Rate * ctx.Dt
	lower := a.MinSpeed != 0 || a.MaxSpeed != 0
	upper := a.MaxSpeed != 0
	for i := range speeds {
		s := speeds[i] + delta
		if lower {
			s = max(s, a.MinSpeed)
		}
		if upper {
			s = min(s, a.MaxSpeed)
		}
		speeds[i] = s
	}
	return nil
}

// AngularAcceleration 角加速：angularSpeed += Rate*dt
type AngularAcceleration struct {
	Rate float32
}

func (a *AngularAcceleration) Name() string { return "angular_acceleration" }
func (a *AngularAcceleration) Stage() Stage { return StagePre }

func (a *AngularAcceleration) Apply(ctx *ModifierContext) error {
	ws := ctx.Pool.Columns().AngularSpeeds
	delta := a.Rate * ctx.Dt
	for i := range ws {
		ws[i] += delta
	}
	return nil
}

// ColorFade 颜色渐变：从创建时的颜色过渡到 Target
// 进度 = Easing(age / Duration)，Easing 为 nil 时线性
type ColorFade struct {
	Target   components.Color
	Duration float32
	Easing   curve.EasingFunc
}

func (c *ColorFade) Name() string { return "color_fade" }
func (c *ColorFade) Stage() Stage { return StagePost }

func (c *ColorFade) Apply(ctx *ModifierContext) error {
	cols := ctx.Pool.Columns()
	ease := c.Easing
	if ease == nil {
		ease = curve.Linear
	}
	for i := range cols.Colors {
		t := float32(1)
		if c.Duration > 0 {
			t = curve.Clamp01(cols.Ages[i] / c.Duration)
		}
		cols.Colors[i] = cols.Initial[i].Color.Lerp(c.Target, ease(t))
	}
	return nil
}

// Lifetime 存活时间达到 MaxAge 的实体请求销毁
type Lifetime struct {
	MaxAge float32
}

func (l *Lifetime) Name() string { return "lifetime" }
func (l *Lifetime) Stage() Stage { return StagePost }

func (l *Lifetime) Apply(ctx *ModifierContext) error {
	ages := ctx.Pool.Columns().Ages
	for i, age := range ages {
		if age >= l.MaxAge {
			if err := ctx.Pool.DestroyAt(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// BoundsCull 位置离开 Area 的实体请求销毁
type BoundsCull struct {
	Area components.Bounds
}

func (b *BoundsCull) Name() string { return "bounds_cull" }
func (b *BoundsCull) Stage() Stage { return StagePost }

func (b *BoundsCull) Apply(ctx *ModifierContext) error {
	positions := ctx.Pool.Columns().Positions
	for i, pos := range positions {
		if !b.Area.Contains(pos) {
			if err := ctx.Pool.DestroyAt(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// CollisionResponse 消费碰撞掩码中 Mask 指定的位
//
// 命中的位被清除，然后回调 OnHit（可为 nil）；Destroy 为 true 时同时请求销毁实体。
type CollisionResponse struct {
	Mask    uint32
	Destroy bool
	OnHit   func(h ecs.EntityHandle, hit uint32)
}

func (c *CollisionResponse) Name() string { return "collision_response" }
func (c *CollisionResponse) Stage() Stage { return StagePost }

func (c *CollisionResponse) Apply(ctx *ModifierContext) error {
	masks := ctx.Pool.Columns().CollisionMasks
	for i := range masks {
		hit := masks[i] & c.Mask
		if hit == 0 {
			continue
		}
		masks[i] &^= hit
		if c.OnHit != nil {
			h, err := ctx.Pool.HandleAt(i)
			if err != nil {
				return err
			}
			c.OnHit(h, hit)
		}
		if c.Destroy {
			if err := ctx.Pool.DestroyAt(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// SpeedCurve 按曲线设置速度：speed = Curve.At(age / Duration)
type SpeedCurve struct {
	Curve    curve.Value
	Duration float32
}

func (s *SpeedCurve) Name() string { return "speed_curve" }
func (s *SpeedCurve) Stage() Stage { return StagePre }

func (s *SpeedCurve) Apply(ctx *ModifierContext) error {
	cols := ctx.Pool.Columns()
	for i := range cols.Speeds {
		t := float32(1)
		if s.Duration > 0 {
			t = cols.Ages[i] / s.Duration
		}
		cols.Speeds[i] = s.Curve.At(t)
	}
	return nil
}
