package systems

import (
	"fmt"
	"runtime/debug"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/ecs"
)

// Stage 修改器的执行阶段
type Stage int

const (
	// StagePre 在运动积分之前执行
	StagePre Stage = iota
	// StagePost 在碰撞检测之后、变换刷新之前执行
	StagePost
)

func (s Stage) String() string {
	switch s {
	case StagePre:
		return "pre"
	case StagePost:
		return "post"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Modifier 弹幕行为修改器
//
// 修改器按列表顺序在所属集合的管线中串行执行，可以读写整个活跃区间。
// 修改器只能通过 Pool.DestroyAt / Destroy 请求销毁（延迟到帧末压缩），
// 不能自行压缩池。
type Modifier interface {
	Name() string
	Stage() Stage
	Apply(ctx *ModifierContext) error
}

// ModifierContext 修改器每帧的执行上下文
type ModifierContext struct {
	Pool   *ecs.EntityPool
	Dt     float32
	Frame  uint64
	Logger *zap.Logger
}

// Range 返回活跃区间 [lo, hi)
func (c *ModifierContext) Range() (lo, hi int) {
	return 0, c.Pool.ActiveCount()
}

// FuncModifier 把闭包适配为 Modifier
type FuncModifier struct {
	ModName  string
	ModStage Stage
	Fn       func(ctx *ModifierContext) error
}

func (f *FuncModifier) Name() string {
	if f.ModName == "" {
		return "func"
	}
	return f.ModName
}

func (f *FuncModifier) Stage() Stage { return f.ModStage }

func (f *FuncModifier) Apply(ctx *ModifierContext) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx)
}

// Composite 按显式顺序组合多个修改器，整体作为一个修改器挂在集合上
//
// 子修改器自身声明的阶段被忽略，全部在 Composite 的阶段执行。
// 任一子修改器失败时中止组合中剩余的部分。
type Composite struct {
	CompositeName  string
	CompositeStage Stage
	Parts          []Modifier
}

func (c *Composite) Name() string {
	if c.CompositeName == "" {
		return "composite"
	}
	return c.CompositeName
}

func (c *Composite) Stage() Stage { return c.CompositeStage }

func (c *Composite) Apply(ctx *ModifierContext) error {
	for _, m := range c.Parts {
		if err := m.Apply(ctx); err != nil {
			return eris.Wrapf(err, "composite part %q", m.Name())
		}
	}
	return nil
}

// applyModifier 执行单个修改器，把错误和 panic 统一转换为 ErrModifierFailure
func applyModifier(m Modifier, ctx *ModifierContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Wrapf(ErrModifierFailure, "modifier %q panicked: %v\n%s", m.Name(), r, debug.Stack())
		}
	}()
	if applyErr := m.Apply(ctx); applyErr != nil {
		return eris.Wrapf(ErrModifierFailure, "modifier %q: %v", m.Name(), applyErr)
	}
	return nil
}
