//go:build mobile

// Package mobile 提供 ebitenmobile 绑定入口
//
// 此包用于构建 Android (.aar) 和 iOS (.xcframework) 包。
// 使用 ebitenmobile 工具构建时会自动调用 init() 函数。
// 构建前需要把 data/danmaku.yaml 和 data/scripts 复制到 mobile/data。
//
//	# Android
//	ebitenmobile bind -target android -tags mobile -androidapi 23 -javapkg com.decker.danmaku -o build/android/danmaku.aar ./mobile
//
//	# iOS (仅 macOS)
//	ebitenmobile bind -target ios -tags mobile -o build/ios/Danmaku.xcframework ./mobile
package mobile

import (
	"github.com/hajimehoshi/ebiten/v2/mobile"
	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/app"
	"github.com/decker502/danmaku/pkg/config"
	"github.com/decker502/danmaku/pkg/embedded"
	"github.com/decker502/danmaku/pkg/logger"
)

func init() {
	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)
	log := logger.Must(config.Defaults().Logging)

	data, err := embedded.ReadFile("data/danmaku.yaml")
	if err != nil {
		log.Fatal("[Mobile] failed to read config", zap.Error(err))
	}
	cfg, err := config.Parse(data, config.FormatYAML)
	if err != nil {
		log.Fatal("[Mobile] invalid config", zap.Error(err))
	}
	scripts, err := embedded.Sub("data")
	if err != nil {
		log.Fatal("[Mobile] failed to open scripts", zap.Error(err))
	}

	gm, err := gdata.Open(gdata.Config{AppName: "danmaku"})
	if err != nil {
		log.Warn("[Mobile] settings persistence unavailable", zap.Error(err))
		gm = nil
	}

	a, err := app.NewApp(app.Config{Config: cfg, Scripts: scripts, Gdata: gm, Logger: logger.Must(cfg.Logging)})
	if err != nil {
		log.Fatal("[Mobile] failed to create app", zap.Error(err))
	}
	mobile.SetGame(a)
}

// Dummy 是一个空导出函数，确保包被 ebitenmobile 正确识别
func Dummy() {}
