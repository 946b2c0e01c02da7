package components

// BulletState 单个弹幕实体的可发射状态
//
// 用作创建实体时的参数，同时作为实体的 initial_state 快照保存：
// 快照在创建后不可变，供可重置的行为（如颜色渐变、速度曲线）读取初始值
type BulletState struct {
	Position     Vec2    // 世界坐标
	Rotation     float32 // 弧度，同时作为移动方向
	Speed        float32 // 每秒移动距离，可为负
	AngularSpeed float32 // 每秒旋转弧度，可为负
	Color        Color
}
