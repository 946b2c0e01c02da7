package game

import (
	"github.com/quasilyte/gdata/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DemoSettings 演示程序的查看设置
// 只是观察者偏好，不属于模拟状态
type DemoSettings struct {
	Pattern      string  `yaml:"pattern"`      // 当前发射图案: "ring" / "spread"
	ShowOverlay  bool    `yaml:"showOverlay"`  // 是否显示统计信息
	Paused       bool    `yaml:"paused"`       // 启动时是否暂停
	RingCount    int     `yaml:"ringCount"`    // 环形图案每次发射的数量
	FireInterval float32 `yaml:"fireInterval"` // 发射间隔（秒）
	CameraMask   uint32  `yaml:"cameraMask"`   // 可见图层掩码
}

// 发射图案
const (
	PatternRing   = "ring"
	PatternSpread = "spread"
)

// DefaultDemoSettings 返回默认设置
func DefaultDemoSettings() *DemoSettings {
	return &DemoSettings{
		Pattern:      PatternRing,
		ShowOverlay:  true,
		RingCount:    24,
		FireInterval: 0.1,
		CameraMask:   ^uint32(0),
	}
}

// SettingsManager 设置管理器
// 负责演示设置的加载、保存和内存管理
type SettingsManager struct {
	gdataManager *gdata.Manager // 可为 nil（降级模式，仅内存设置）
	settings     *DemoSettings
	logger       *zap.Logger
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "demo"
)

// NewSettingsManager 创建设置管理器并尝试加载已保存的设置
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil
//   - logger: 日志记录器，可为 nil
func NewSettingsManager(gdataManager *gdata.Manager, logger *zap.Logger) *SettingsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultDemoSettings(),
		logger:       logger,
	}
	// 加载失败不是致命错误，使用默认设置
	if err := sm.Load(); err != nil {
		logger.Warn("[SettingsManager] failed to load settings, using defaults", zap.Error(err))
	}
	return sm
}

// Load 从 gdata 加载设置
//
// gdataManager 为 nil 或数据不存在时使用默认设置
func (sm *SettingsManager) Load() error {
	if sm.gdataManager == nil || !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		sm.settings = DefaultDemoSettings()
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		sm.settings = DefaultDemoSettings()
		return eris.Wrap(err, "load settings")
	}

	// 在默认值之上覆盖，缺失字段保留默认
	loaded := DefaultDemoSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		sm.settings = DefaultDemoSettings()
		return eris.Wrap(err, "unmarshal settings")
	}
	loaded.normalize()
	sm.settings = loaded
	sm.logger.Debug("[SettingsManager] settings loaded", zap.String("pattern", loaded.Pattern))
	return nil
}

// Save 保存设置到 gdata
// gdataManager 为 nil 时直接返回 nil
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}
	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return eris.Wrap(err, "marshal settings")
	}
	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return eris.Wrap(err, "save settings")
	}
	sm.logger.Debug("[SettingsManager] settings saved")
	return nil
}

// Settings 返回当前设置
func (sm *SettingsManager) Settings() *DemoSettings {
	return sm.settings
}

// CyclePattern 切换到下一个发射图案
func (sm *SettingsManager) CyclePattern() string {
	if sm.settings.Pattern == PatternRing {
		sm.settings.Pattern = PatternSpread
	} else {
		sm.settings.Pattern = PatternRing
	}
	return sm.settings.Pattern
}

// ToggleOverlay 切换统计信息显示
func (sm *SettingsManager) ToggleOverlay() {
	sm.settings.ShowOverlay = !sm.settings.ShowOverlay
}

// TogglePaused 切换暂停
func (sm *SettingsManager) TogglePaused() {
	sm.settings.Paused = !sm.settings.Paused
}

// ToggleLayer 切换某个图层的可见性
func (sm *SettingsManager) ToggleLayer(layer int) {
	if layer < 0 || layer >= 32 {
		return
	}
	sm.settings.CameraMask ^= 1 << uint(layer)
}

// SetRingCount 设置环形图案数量（限制在 1 ~ 360）
// 仅修改内存中的设置，需调用 Save() 持久化
func (sm *SettingsManager) SetRingCount(n int) {
	sm.settings.RingCount = min(max(n, 1), 360)
}

func (s *DemoSettings) normalize() {
	if s.Pattern != PatternRing && s.Pattern != PatternSpread {
		s.Pattern = PatternRing
	}
	s.RingCount = min(max(s.RingCount, 1), 360)
	if s.FireInterval <= 0 {
		s.FireInterval = DefaultDemoSettings().FireInterval
	}
}
