package ecs

import "github.com/decker502/danmaku/pkg/components"

// Columns 活跃区间 [0, ActiveCount()) 上的未校验列切片
//
// 供数据并行系统按下标区间读写使用。切片在下一次 Get、扩容或 FlushDestroyed 之前有效。
type Columns struct {
	Positions      []components.Vec2
	Rotations      []float32
	Speeds         []float32
	AngularSpeeds  []float32
	Colors         []components.Color
	Ages           []float32
	Initial        []components.BulletState
	OldPositions   []components.Vec2
	CollisionMasks []uint32
	Transforms     []components.Matrix4
}

// Len 返回列长度（即活跃数量）
func (c Columns) Len() int { return len(c.Positions) }

// Columns 返回活跃区间上的列切片
func (p *EntityPool) Columns() Columns {
	if p.disposed {
		return Columns{}
	}
	n := p.active
	return Columns{
		Positions:      p.positions[:n],
		Rotations:      p.rotations[:n],
		Speeds:         p.speeds[:n],
		AngularSpeeds:  p.angularSpeeds[:n],
		Colors:         p.colors[:n],
		Ages:           p.ages[:n],
		Initial:        p.initial[:n],
		OldPositions:   p.oldPositions[:n],
		CollisionMasks: p.collisionMasks[:n],
		Transforms:     p.transforms[:n],
	}
}

// Position 获取实体位置
func (p *EntityPool) Position(h EntityHandle) (components.Vec2, error) {
	if err := p.check(h); err != nil {
		return components.Vec2{}, err
	}
	return p.positions[h.Slot], nil
}

// SetPosition 设置实体位置
func (p *EntityPool) SetPosition(h EntityHandle, pos components.Vec2) error {
	if err := p.check(h); err != nil {
		return err
	}
	p.positions[h.Slot] = pos
	return nil
}

// Rotation 获取实体朝向（弧度）
func (p *EntityPool) Rotation(h EntityHandle) (float32, error) {
	if err := p.check(h); err != nil {
		return 0, err
	}
	return p.rotations[h.Slot], nil
}

// SetRotation 设置实体朝向（弧度）
func (p *EntityPool) SetRotation(h EntityHandle, rot float32) error {
	if err := p.check(h); err != nil {
		return err
	}
	p.rotations[h.Slot] = rot
	return nil
}

func (p *EntityPool) Speed(h EntityHandle) (float32, error) {
	if err := p.check(h); err != nil {
		return 0, err
	}
	return p.speeds[h.Slot], nil
}

func (p *EntityPool) SetSpeed(h EntityHandle, speed float32) error {
	if err := p.check(h); err != nil {
		return err
	}
	p.speeds[h.Slot] = speed
	return nil
}

func (p *EntityPool) AngularSpeed(h EntityHandle) (float32, error) {
	if err := p.check(h); err != nil {
		return 0, err
	}
	return p.angularSpeeds[h.Slot], nil
}

func (p *EntityPool) SetAngularSpeed(h EntityHandle, w float32) error {
	if err := p.check(h); err != nil {
		return err
	}
	p.angularSpeeds[h.Slot] = w
	return nil
}

func (p *EntityPool) Color(h EntityHandle) (components.Color, error) {
	if err := p.check(h); err != nil {
		return components.Color{}, err
	}
	return p.colors[h.Slot], nil
}

func (p *EntityPool) SetColor(h EntityHandle, c components.Color) error {
	if err := p.check(h); err != nil {
		return err
	}
	p.colors[h.Slot] = c
	return nil
}

// Age 实体存活时间（秒）
func (p *EntityPool) Age(h EntityHandle) (float32, error) {
	if err := p.check(h); err != nil {
		return 0, err
	}
	return p.ages[h.Slot], nil
}

// InitialState 实体创建时的状态快照
func (p *EntityPool) InitialState(h EntityHandle) (components.BulletState, error) {
	if err := p.check(h); err != nil {
		return components.BulletState{}, err
	}
	return p.initial[h.Slot], nil
}

// OldPosition 本帧积分前的位置
func (p *EntityPool) OldPosition(h EntityHandle) (components.Vec2, error) {
	if err := p.check(h); err != nil {
		return components.Vec2{}, err
	}
	return p.oldPositions[h.Slot], nil
}

// CollisionMask 本帧碰撞到的图层位掩码
func (p *EntityPool) CollisionMask(h EntityHandle) (uint32, error) {
	if err := p.check(h); err != nil {
		return 0, err
	}
	return p.collisionMasks[h.Slot], nil
}

// ClearCollisionMask 清除碰撞位掩码中 bits 指定的位
func (p *EntityPool) ClearCollisionMask(h EntityHandle, bits uint32) error {
	if err := p.check(h); err != nil {
		return err
	}
	p.collisionMasks[h.Slot] &^= bits
	return nil
}

// Transform 实体的渲染变换矩阵
func (p *EntityPool) Transform(h EntityHandle) (components.Matrix4, error) {
	if err := p.check(h); err != nil {
		return components.Matrix4{}, err
	}
	return p.transforms[h.Slot], nil
}

// State 返回实体当前状态（位置、朝向、速度、角速度、颜色）
func (p *EntityPool) State(h EntityHandle) (components.BulletState, error) {
	if err := p.check(h); err != nil {
		return components.BulletState{}, err
	}
	i := h.Slot
	return components.BulletState{
		Position:     p.positions[i],
		Rotation:     p.rotations[i],
		Speed:        p.speeds[i],
		AngularSpeed: p.angularSpeeds[i],
		Color:        p.colors[i],
	}, nil
}
