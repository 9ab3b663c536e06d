package main

import (
	"flag"
	"time"

	"go.uber.org/zap"

	"StationAlert/pkg/generator"
	"StationAlert/pkg/logger"
)

func main() {
	out := flag.String("out", "data/telemetry.csv", "输出CSV路径")
	devices := flag.Int("devices", 4, "设备数")
	days := flag.Int("days", 7, "生成最近N天")
	interval := flag.Duration("interval", 15*time.Minute, "采样间隔")
	seed := flag.Int64("seed", 0, "随机种子，0表示按当前时间")
	flag.Parse()

	log, err := logger.New("info", "console")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	opts := generator.DefaultOptions()
	opts.Devices = *devices
	opts.Days = *days
	opts.Interval = *interval
	if *seed != 0 {
		opts.Seed = *seed
	}

	rows, err := generator.WriteCSV(*out, opts)
	if err != nil {
		log.Fatal("生成模拟数据失败", zap.Error(err))
	}
	log.Info("模拟数据生成完成", zap.String("path", *out), zap.Int("rows", rows))
}
