// pkg/engine/pipeline.go
package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"StationAlert/pkg/metrics"
	"StationAlert/pkg/model"
)

// Pipeline 单设备串行的规则评估管道：求值 -> 窗口聚合 -> 去重
// 窗口状态和去重状态都归属本实例，同一设备的记录必须按时间
// 非递减顺序送入 Process
type Pipeline struct {
	rules  []*Rule
	agg    *Aggregator
	gate   *DedupGate
	logger *zap.Logger
}

// NewPipeline 创建管道；rules 为已编译的活跃规则集，只读共享
func NewPipeline(rules []*Rule, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		rules:  rules,
		agg:    NewAggregator(),
		gate:   NewDedupGate(),
		logger: logger,
	}
}

// Process 用全部规则评估一条记录，返回幸存的告警事件
// 单条求值失败按 false 处理并计数，不影响其他记录和规则，
// 也不会向窗口状态注入脏值
func (p *Pipeline) Process(rec model.Record) []model.AlertEvent {
	var alerts []model.AlertEvent

	for _, rule := range p.rules {
		triggered, err := rule.Evaluate(rec)
		if err != nil {
			metrics.EvalFailures.WithLabelValues(rule.Name).Inc()
			p.logger.Debug("规则求值失败，按未触发处理",
				zap.String("rule", rule.Name),
				zap.String("device_id", rec.DeviceID),
				zap.Error(err),
			)
			triggered = false
		}

		firing := p.agg.Push(rule, rec.DeviceID, rec.Timestamp, triggered)
		if !firing {
			continue
		}
		if !p.gate.Keep(rule, rec.DeviceID, rec.Timestamp) {
			continue
		}

		alert := model.AlertEvent{
			ID:        uuid.New().String(),
			Timestamp: rec.Timestamp,
			DeviceID:  rec.DeviceID,
			RuleName:  rule.Name,
			Severity:  rule.Severity,
			Message:   rule.RenderMessage(rec.DeviceID),
			CreatedAt: time.Now(),
		}
		metrics.AlertsEmitted.WithLabelValues(rule.Name, string(rule.Severity)).Inc()
		alerts = append(alerts, alert)
	}

	return alerts
}
