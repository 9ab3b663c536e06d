package main

import (
	"os"

	"go.uber.org/zap"

	"StationAlert/pkg/api"
	"StationAlert/pkg/config"
	"StationAlert/pkg/database"
	"StationAlert/pkg/engine"
	"StationAlert/pkg/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer log.Sync()

	// 连接数据库
	db, err := database.NewTimescaleDB(cfg)
	if err != nil {
		log.Fatal("连接数据库失败", zap.Error(err))
	}
	defer db.Close()

	// 加载规则集用于 /rules 展示
	rules, err := engine.LoadRules(cfg.Rules.Path, log)
	if err != nil {
		log.Fatal("加载规则集失败", zap.Error(err))
	}

	server := api.NewServer(cfg.API.Port, cfg.API.ReadTimeout.Std(), cfg.API.WriteTimeout.Std(), log)
	server.SetupRoutes(api.NewHandlers(db.Alert(), rules))
	server.Start()
}
