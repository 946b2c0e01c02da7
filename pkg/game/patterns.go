package game

import (
	"math"

	"github.com/decker502/danmaku/pkg/components"
	"github.com/decker502/danmaku/pkg/ecs"
)

// RingPattern 环形发射参数
type RingPattern struct {
	Center       components.Vec2
	Count        int
	Speed        float32
	AngularSpeed float32
	Offset       float32 // 第一颗的角度（弧度）
	Color        components.Color
}

// FireRing 以 Center 为圆心向四周均匀发射 Count 颗弹幕
//
// 通过 FireBatch 一次性发射，池满（固定容量）时一颗也不发射。
func FireRing(set *EntitySet, p RingPattern) ([]ecs.EntityHandle, error) {
	if p.Count <= 0 {
		return nil, nil
	}
	step := 2 * math.Pi / float32(p.Count)
	states := make([]components.BulletState, p.Count)
	for i := range states {
		states[i] = components.BulletState{
			Position:     p.Center,
			Rotation:     p.Offset + step*float32(i),
			Speed:        p.Speed,
			AngularSpeed: p.AngularSpeed,
			Color:        p.Color,
		}
	}
	return set.FireBatch(states)
}

// SpreadPattern 扇形发射参数
type SpreadPattern struct {
	Origin    components.Vec2
	Count     int
	Direction float32 // 扇形中心方向（弧度）
	Arc       float32 // 扇形总角度（弧度）
	Speed     float32
	Color     components.Color
}

// FireSpread 在 Direction 两侧的 Arc 范围内均匀发射 Count 颗弹幕
// Count 为 1 时沿 Direction 发射
func FireSpread(set *EntitySet, p SpreadPattern) ([]ecs.EntityHandle, error) {
	if p.Count <= 0 {
		return nil, nil
	}
	states := make([]components.BulletState, p.Count)
	start, step := p.Direction, float32(0)
	if p.Count > 1 {
		start = p.Direction - p.Arc/2
		step = p.Arc / float32(p.Count-1)
	}
	for i := range states {
		states[i] = components.BulletState{
			Position: p.Origin,
			Rotation: start + step*float32(i),
			Speed:    p.Speed,
			Color:    p.Color,
		}
	}
	return set.FireBatch(states)
}
