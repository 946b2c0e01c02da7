package main

import (
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/app"
	"github.com/decker502/danmaku/pkg/config"
	"github.com/decker502/danmaku/pkg/embedded"
	"github.com/decker502/danmaku/pkg/logger"
)

const defaultConfigPath = "data/danmaku.yaml"

var (
	configPath = flag.String("config", "", "配置文件路径（为空时使用内置配置）")
	verbose    = flag.Bool("verbose", false, "输出 debug 级别日志")
)

func main() {
	flag.Parse()
	embedded.Init(dataFS)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		// 日志尚未配置，使用默认控制台输出
		logger.Must(config.Defaults().Logging).Fatal("[Main] failed to load config", zap.Error(err))
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	log := logger.Must(cfg.Logging)
	defer func() { _ = log.Sync() }()

	scripts, err := embedded.Sub("data")
	if err != nil {
		log.Fatal("[Main] failed to open embedded scripts", zap.Error(err))
	}
	if *configPath != "" {
		// 外部配置的脚本路径相对于 data/ 目录解析
		scripts = os.DirFS("data")
	}

	gm, err := gdata.Open(gdata.Config{AppName: "danmaku"})
	if err != nil {
		log.Warn("[Main] settings persistence unavailable", zap.Error(err))
		gm = nil
	}

	a, err := app.NewApp(app.Config{
		Config:  cfg,
		Scripts: scripts,
		Gdata:   gm,
		Logger:  log,
	})
	if err != nil {
		log.Fatal("[Main] failed to create app", zap.Error(err))
	}

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	runErr := ebiten.RunGame(a)
	if err := a.Close(); err != nil {
		log.Warn("[Main] failed to save settings", zap.Error(err))
	}
	if runErr != nil {
		log.Fatal("[Main] game loop exited with error", zap.Error(runErr))
	}
}

// loadConfig 加载外部配置，路径为空时解析内置配置
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	data, err := embedded.ReadFile(defaultConfigPath)
	if err != nil {
		return nil, err
	}
	return config.Parse(data, config.FormatYAML)
}
