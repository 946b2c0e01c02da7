package ecs

import "fmt"

// EntityHandle 弹幕实体句柄
//
// Slot 是实体在池中的稠密下标，Generation 是该下标的世代号。
// 压缩（FlushDestroyed）和扩容会提升受影响下标的世代号，
// 因此旧句柄会被检测为过期（ErrStaleHandle），而不会悄悄指向另一个实体。
//
// 零值句柄永远无效（世代号从 1 开始）。
type EntityHandle struct {
	Slot       uint32
	Generation uint32
}

// String 实现 fmt.Stringer
func (h EntityHandle) String() string {
	return fmt.Sprintf("entity(%d@%d)", h.Slot, h.Generation)
}
