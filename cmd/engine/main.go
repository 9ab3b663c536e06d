package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"StationAlert/pkg/config"
	"StationAlert/pkg/database"
	"StationAlert/pkg/engine"
	"StationAlert/pkg/ingest"
	"StationAlert/pkg/logger"
	"StationAlert/pkg/mapping"
	"StationAlert/pkg/messaging"
	"StationAlert/pkg/model"
	"StationAlert/pkg/output"
	"StationAlert/pkg/scheduler"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		// 此时还没有logger
		panic("加载配置失败: " + err.Error())
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer log.Sync()

	log.Info("启动告警引擎",
		zap.String("source", cfg.Data.Source),
		zap.Int("workers", cfg.Engine.Workers),
	)

	// 映射表：文件缺失退化为恒等映射，结构非法则拒绝启动
	resolver, err := mapping.Load(cfg.Data.MappingPath, log)
	if err != nil {
		log.Fatal("加载映射表失败", zap.Error(err))
	}

	// 规则集：文件层面的错误致命，单条编译失败已在加载时排除
	rules, err := engine.LoadRules(cfg.Rules.Path, log)
	if err != nil {
		log.Fatal("加载规则集失败", zap.Error(err))
	}

	// 管道计数器在引擎进程内累加，/metrics 必须由引擎自己暴露
	if cfg.Metrics.Port != "" {
		go serveMetrics(cfg.Metrics.Port, log)
	}

	normalizer := ingest.NewNormalizer(ingest.Options{
		KeyColumn:    cfg.Data.KeyColumn,
		BitColumn:    cfg.Data.BitColumn,
		TimeColumn:   cfg.Data.TimeColumn,
		DeviceColumn: cfg.Data.DeviceColumn,
	}, resolver, log)

	// 可选的告警下游：数据库与NATS
	var db *database.TimescaleDB
	if cfg.Database.TimescaleDB.Host != "" {
		db, err = database.NewTimescaleDB(cfg)
		if err != nil {
			log.Fatal("连接数据库失败", zap.Error(err))
		}
		defer db.Close()
	}

	var natsClient *messaging.NATSClient
	if cfg.NATS.URL != "" {
		natsClient, err = messaging.NewNATSClient(cfg.NATS.URL, log)
		if err != nil {
			log.Fatal("连接NATS失败", zap.Error(err))
		}
		defer natsClient.Close()
	}

	switch cfg.Data.Source {
	case "csv":
		rows, err := ingest.ReadCSV(cfg.Data.CSVPath, log)
		if err != nil {
			log.Fatal("加载CSV数据失败", zap.Error(err))
		}
		runBatch(cfg, log, normalizer, rules, rows, db, natsClient)

	case "tsdb":
		if db == nil {
			log.Fatal("tsdb数据源需要数据库配置")
		}
		runOnce := func() {
			rows, err := db.Telemetry().Query(context.Background(), cfg.Data.SQL)
			if err != nil {
				log.Error("查询遥测数据失败", zap.Error(err))
				return
			}
			runBatch(cfg, log, normalizer, rules, rows, db, natsClient)
		}
		runOnce()

		// 配置了cron表达式时周期性重跑；窗口/去重状态每轮独立，
		// 批量重放语义与流式一致
		if cfg.Scheduler.BatchSpec != "" {
			sched := scheduler.NewScheduler(log)
			if err := sched.AddBatchRun(cfg.Scheduler.BatchSpec, runOnce); err != nil {
				log.Fatal("注册调度任务失败", zap.Error(err))
			}
			sched.Start()
			defer sched.Stop()
			waitForSignal(log)
		}

	case "nats":
		if natsClient == nil {
			log.Fatal("nats数据源需要NATS配置")
		}
		runStream(cfg, log, normalizer, rules, db, natsClient)

	default:
		log.Fatal("未知数据源", zap.String("source", cfg.Data.Source))
	}
}

// runBatch 批处理模式：归一化整批 -> 排序 -> 逐条送入评估器
func runBatch(
	cfg *config.Config,
	log *zap.Logger,
	normalizer *ingest.Normalizer,
	rules []*engine.Rule,
	rows []model.RawRow,
	db *database.TimescaleDB,
	natsClient *messaging.NATSClient,
) {
	records := normalizer.NormalizeBatch(rows)
	log.Info("数据归一化完成", zap.Int("rows", len(rows)), zap.Int("records", len(records)))

	runner := engine.NewRunner(rules, cfg.Engine.Workers, cfg.Engine.BufferSize, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)

	go func() {
		for _, rec := range records {
			runner.Submit(rec)
		}
		runner.Close()
	}()

	var alerts []model.AlertEvent
	for alert := range runner.Alerts() {
		alerts = append(alerts, alert)
	}
	// 跨设备汇总后按时间戳重排，报告内全局有序
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.Before(alerts[j].Timestamp)
	})

	log.Info("评估完成", zap.Int("alerts", len(alerts)))
	deliverAlerts(cfg, log, alerts, db, natsClient)
}

// runStream 流式模式：NATS遥测 -> 乱序缓冲 -> 评估器
func runStream(
	cfg *config.Config,
	log *zap.Logger,
	normalizer *ingest.Normalizer,
	rules []*engine.Rule,
	db *database.TimescaleDB,
	natsClient *messaging.NATSClient,
) {
	runner := engine.NewRunner(rules, cfg.Engine.Workers, cfg.Engine.BufferSize, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)

	// 告警下游；CSV报告只在批处理模式生成
	go func() {
		for alert := range runner.Alerts() {
			if db != nil {
				if err := db.Alert().Save(&alert); err != nil {
					log.Error("保存告警事件失败", zap.Error(err))
				}
			}
			if err := natsClient.PublishAlert(cfg.NATS.AlertsSubject, alert); err != nil {
				log.Error("发布告警事件失败", zap.Error(err))
			}
		}
	}()

	// 消费者回调可能与关停路径并发，缓冲内部串行化
	buffer := ingest.NewReorderBuffer(cfg.Data.Lateness.Std(), runner.Submit)
	err := natsClient.SubscribeTelemetry("alert-engine", cfg.NATS.TelemetrySubject, func(row model.RawRow) error {
		if rec, ok := normalizer.Normalize(row); ok {
			buffer.Push(rec)
		}
		return nil
	})
	if err != nil {
		log.Fatal("订阅遥测数据失败", zap.Error(err))
	}

	waitForSignal(log)
	// 先封口缓冲：Close 返回后迟到的消费者回调不再向评估器提交，
	// 之后关闭评估器的输入通道才安全
	buffer.Close()
	runner.Close()
}

// deliverAlerts 把告警交给配置的全部下游
func deliverAlerts(
	cfg *config.Config,
	log *zap.Logger,
	alerts []model.AlertEvent,
	db *database.TimescaleDB,
	natsClient *messaging.NATSClient,
) {
	if len(alerts) == 0 {
		return
	}

	if cfg.Output.Path != "" {
		if err := output.WriteCSVReport(cfg.Output.Path, alerts); err != nil {
			log.Error("写入告警报告失败", zap.Error(err))
		} else {
			log.Info("告警报告已写入", zap.String("path", cfg.Output.Path))
		}
	}

	if db != nil {
		if err := db.Alert().SaveBatch(alerts); err != nil {
			log.Error("保存告警事件失败", zap.Error(err))
		}
	}

	if natsClient != nil {
		for _, alert := range alerts {
			if err := natsClient.PublishAlert(cfg.NATS.AlertsSubject, alert); err != nil {
				log.Error("发布告警事件失败", zap.Error(err))
			}
		}
	}
}

// serveMetrics 暴露Prometheus指标端点
func serveMetrics(port string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := ":" + port
	log.Info("指标端点启动", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("指标端点退出", zap.Error(err))
	}
}

func waitForSignal(log *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("正在关闭告警引擎...")
}
