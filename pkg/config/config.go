package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = eris.New("invalid config")

// Config 弹幕模拟配置
//
// 配置文件位置: data/danmaku.yaml（也支持 .toml）
// 未出现在文件中的字段保留 Defaults() 中的默认值。
type Config struct {
	Simulation SimulationConfig `yaml:"simulation" toml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Window     WindowConfig     `yaml:"window" toml:"window"`
	Sets       []SetConfig      `yaml:"sets" toml:"sets"`
}

// SimulationConfig 模拟核心参数
type SimulationConfig struct {
	// InitialCapacity 每个集合实体池的初始容量
	InitialCapacity int `yaml:"initialCapacity" toml:"initial_capacity"`

	// FixedCapacity 禁用扩容，池满时发射失败
	FixedCapacity bool `yaml:"fixedCapacity" toml:"fixed_capacity"`

	// BatchSize 数据并行阶段每个任务的下标区间大小
	BatchSize int `yaml:"batchSize" toml:"batch_size"`

	// Workers 并发任务上限（0 = GOMAXPROCS）
	Workers int `yaml:"workers" toml:"workers"`

	// FrameBudget 单帧 Tick 的时间预算，超出时记录警告（0 = 不检查）
	FrameBudget time.Duration `yaml:"frameBudget" toml:"frame_budget"`

	// RenderBatchSize 单个绘制批次的实例数上限（0 = 默认 1023，不能超过 1023）
	RenderBatchSize int `yaml:"renderBatchSize" toml:"render_batch_size"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "json" or "console"
}

// WindowConfig 演示程序窗口配置
type WindowConfig struct {
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	Title  string `yaml:"title" toml:"title"`
}

// SetConfig 一个弹幕集合的配置
type SetConfig struct {
	Name           string           `yaml:"name" toml:"name"`
	Mesh           string           `yaml:"mesh" toml:"mesh"`
	Sprite         string           `yaml:"sprite" toml:"sprite"`
	Material       string           `yaml:"material" toml:"material"`
	Layer          int              `yaml:"layer" toml:"layer"`
	Scale          float32          `yaml:"scale" toml:"scale"`
	ColliderRadius float32          `yaml:"colliderRadius" toml:"collider_radius"`
	Capacity       int              `yaml:"capacity" toml:"capacity"`
	FixedCapacity  bool             `yaml:"fixedCapacity" toml:"fixed_capacity"`
	Modifiers      []ModifierConfig `yaml:"modifiers" toml:"modifiers"`
}

// ModifierConfig 修改器配置
//
// Type 决定使用哪些字段:
//   - acceleration: Rate, MinSpeed, MaxSpeed
//   - angular_acceleration: Rate
//   - color_fade: Color(RGBA), Duration, Easing
//   - lifetime: MaxAge
//   - bounds_cull: Area(minX minY maxX maxY)
//   - collision_response: Mask, Destroy
//   - speed_curve: Curve, Duration
//   - lua: Script（文件路径）, Function, Stage
type ModifierConfig struct {
	Type     string    `yaml:"type" toml:"type"`
	Rate     float32   `yaml:"rate" toml:"rate"`
	MinSpeed float32   `yaml:"minSpeed" toml:"min_speed"`
	MaxSpeed float32   `yaml:"maxSpeed" toml:"max_speed"`
	MaxAge   float32   `yaml:"maxAge" toml:"max_age"`
	Duration float32   `yaml:"duration" toml:"duration"`
	Color    []float32 `yaml:"color" toml:"color"`
	Area     []float32 `yaml:"area" toml:"area"`
	Mask     uint32    `yaml:"mask" toml:"mask"`
	Destroy  bool      `yaml:"destroy" toml:"destroy"`
	Curve    string    `yaml:"curve" toml:"curve"`
	Easing   string    `yaml:"easing" toml:"easing"`
	Script   string    `yaml:"script" toml:"script"`
	Function string    `yaml:"function" toml:"function"`
	Stage    string    `yaml:"stage" toml:"stage"` // "pre" / "post"，仅 lua 使用
}

// 支持的修改器类型
const (
	ModifierAcceleration        = "acceleration"
	ModifierAngularAcceleration = "angular_acceleration"
	ModifierColorFade           = "color_fade"
	ModifierLifetime            = "lifetime"
	ModifierBoundsCull          = "bounds_cull"
	ModifierCollisionResponse   = "collision_response"
	ModifierSpeedCurve          = "speed_curve"
	ModifierLua                 = "lua"
)

// 支持的配置格式
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Defaults 返回默认配置
func Defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			InitialCapacity: 256,
			BatchSize:       256,
			FrameBudget:     16 * time.Millisecond,
			RenderBatchSize: 1023,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "Danmaku",
		},
	}
}

// Load 加载配置文件
//
// 按扩展名选择解码器：.yaml/.yml 使用 YAML，.toml 使用 TOML。
// 先填充默认值，再用文件内容覆盖，最后校验。
//
// 参数:
//   - path: 配置文件路径（如 "data/danmaku.yaml"）
//
// 返回:
//   - *Config: 加载成功后的配置
//   - error: 读取、解析或校验失败时返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read config %s", path)
	}
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, eris.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", eris.Wrapf(ErrInvalidConfig, "unsupported config extension %q", filepath.Ext(path))
}

// Parse 解析配置内容
//
// 参数:
//   - data: 配置内容
//   - format: FormatYAML 或 FormatTOML
func Parse(data []byte, format string) (*Config, error) {
	cfg := Defaults()
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// 空文档时 Decode 返回 io.EOF
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, eris.Wrap(err, "parse yaml config")
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, eris.Wrap(err, "parse toml config")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, eris.Wrapf(ErrInvalidConfig, "unknown toml keys %v", undecoded)
		}
	default:
		return nil, eris.Wrapf(ErrInvalidConfig, "unsupported config format %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
