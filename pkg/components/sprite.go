package components

import "github.com/rotisserie/eris"

// MaxLayers 碰撞层/渲染层的数量上限（层位掩码为 uint32）
const MaxLayers = 32

// ErrInvalidRenderConfig 渲染配置既没有网格也没有精灵，或层号越界
// 在创建 EntitySet 时立即失败，而不是推迟到渲染时
var ErrInvalidRenderConfig = eris.New("invalid render config")

// RenderConfig 弹幕集合的视觉配置
//
// Mesh/Sprite/Material 都是不透明的资源标识，由渲染后端解析为具体贴图和混合模式。
// 相同 Key() 的集合在渲染时被合并为同一组，共享批次。
type RenderConfig struct {
	Mesh     string // 网格资源ID（与 Sprite 二选一）
	Sprite   string // 精灵资源ID（与 Mesh 二选一）
	Material string // 材质标识，如 "normal"、"additive"
	Layer    int    // 渲染/碰撞层 0-31

	// Scale 实例缩放倍数（0 视为 1）
	Scale float32
	// ColliderRadius 扫掠碰撞检测使用的半径（像素）
	ColliderRadius float32
}

// RenderKey 渲染分组键
type RenderKey struct {
	Mesh     string
	Sprite   string
	Material string
	Layer    int
}

// Key 返回分组键
func (c RenderConfig) Key() RenderKey {
	return RenderKey{Mesh: c.Mesh, Sprite: c.Sprite, Material: c.Material, Layer: c.Layer}
}

// EffectiveScale 返回实际使用的缩放倍数
func (c RenderConfig) EffectiveScale() float32 {
	if c.Scale == 0 {
		return 1
	}
	return c.Scale
}

// Validate 校验渲染配置
//
// 返回:
//   - error: 配置无效时返回包装了 ErrInvalidRenderConfig 的错误
func (c RenderConfig) Validate() error {
	if c.Mesh == "" && c.Sprite == "" {
		return eris.Wrap(ErrInvalidRenderConfig, "neither mesh nor sprite is set")
	}
	if c.Layer < 0 || c.Layer >= MaxLayers {
		return eris.Wrapf(ErrInvalidRenderConfig, "layer %d out of range [0, %d)", c.Layer, MaxLayers)
	}
	if c.ColliderRadius < 0 {
		return eris.Wrapf(ErrInvalidRenderConfig, "negative collider radius %f", c.ColliderRadius)
	}
	return nil
}
