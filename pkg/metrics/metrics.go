// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 管道计数器
// 按规格，坏时间戳丢弃、迟到丢弃和单条求值失败只计数不报错
var (
	// RecordsIngested 归一化成功的记录总数
	RecordsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stationalert_records_ingested_total",
			Help: "Total number of raw rows normalized into records",
		},
	)

	// RecordsDropped 被丢弃的记录总数，按原因区分
	// reason: bad_timestamp / late
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationalert_records_dropped_total",
			Help: "Total number of raw rows dropped by data-quality filters",
		},
		[]string{"reason"},
	)

	// EvalFailures 规则对单条记录求值失败的次数（按 false 处理）
	EvalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationalert_rule_eval_failures_total",
			Help: "Total number of per-record rule evaluation failures",
		},
		[]string{"rule"},
	)

	// AlertsEmitted 通过去重闸门后实际发出的告警数
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationalert_alerts_emitted_total",
			Help: "Total number of alert events emitted",
		},
		[]string{"rule", "severity"},
	)
)
