package systems

import "github.com/rotisserie/eris"

var (
	// ErrModifierFailure 修改器返回错误或发生 panic
	// 只影响该修改器本帧的执行，管线继续运行
	ErrModifierFailure = eris.New("modifier failure")

	// ErrRegistryFrozen 帧运行期间尝试修改碰撞体注册表
	ErrRegistryFrozen = eris.New("collider registry is frozen")

	// ErrUnknownCollider 碰撞体 ID 未注册
	ErrUnknownCollider = eris.New("unknown collider")

	// ErrInvalidLayer 图层不在 [0, 32) 范围内
	ErrInvalidLayer = eris.New("invalid collision layer")
)
