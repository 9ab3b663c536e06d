// pkg/ingest/normalizer.go
package ingest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"StationAlert/pkg/mapping"
	"StationAlert/pkg/metrics"
	"StationAlert/pkg/model"
)

// 复合主键与位域的分隔符
const fieldDelimiter = "|"

// 主时间戳格式：日期和时间之间没有分隔符
// 例如 "2025-12-1514:47:10"
const primaryTimeLayout = "2006-01-0215:04:05"

// 备选格式，主格式解析失败时逐个尝试
var fallbackTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

// Options 归一化器的列清单：哪些列承载复合主键、位域和列式行的设备/时间
type Options struct {
	KeyColumn    string // 复合主键列，形如 "设备ID|YYYY-MM-DDHH:MM:SS"
	BitColumn    string // 位域列，形如 "1|0|1|1"
	TimeColumn   string // 列式行的时间列
	DeviceColumn string // 列式行的设备列
}

// DefaultOptions 现场数据的默认列名
func DefaultOptions() Options {
	return Options{
		KeyColumn:    "PK",
		BitColumn:    "bit",
		TimeColumn:   "ts",
		DeviceColumn: "equ_code",
	}
}

// Normalizer 把原始行解码为归一化记录
// 解码顺序：复合主键/列式键 -> 位域展开 -> 字段映射
type Normalizer struct {
	opts     Options
	resolver *mapping.Resolver
	logger   *zap.Logger
}

// NewNormalizer 创建归一化器，未指定的列名逐项取默认值
func NewNormalizer(opts Options, resolver *mapping.Resolver, logger *zap.Logger) *Normalizer {
	def := DefaultOptions()
	if opts.KeyColumn == "" {
		opts.KeyColumn = def.KeyColumn
	}
	if opts.BitColumn == "" {
		opts.BitColumn = def.BitColumn
	}
	if opts.TimeColumn == "" {
		opts.TimeColumn = def.TimeColumn
	}
	if opts.DeviceColumn == "" {
		opts.DeviceColumn = def.DeviceColumn
	}
	return &Normalizer{
		opts:     opts,
		resolver: resolver,
		logger:   logger,
	}
}

// Normalize 解码一行原始数据
// 时间戳无法解析的行被丢弃（返回 ok=false 并计数），这是数据质量过滤而非错误
func (n *Normalizer) Normalize(row model.RawRow) (model.Record, bool) {
	fields := make(map[string]interface{}, len(row))
	var deviceID string
	var timestamp time.Time
	var tsOK bool

	for col, raw := range row {
		switch col {
		case n.opts.KeyColumn:
			// 复合主键：首个 '|' 之前是设备，其余是时间戳
			deviceID, timestamp, tsOK = splitCompositeKey(toString(raw))
		case n.opts.DeviceColumn:
			deviceID = toString(raw)
		case n.opts.TimeColumn:
			timestamp, tsOK = coerceTimestamp(raw)
		case n.opts.BitColumn:
			// 位域展开只处理文本表示；已经是数值说明上游已归一化，原样保留
			if s, isText := raw.(string); isText {
				for i, flag := range strings.Split(s, fieldDelimiter) {
					fields[fmt.Sprintf("bit_%d", i)] = parseFlag(flag)
				}
			} else {
				fields[col] = coerceValue(raw)
			}
		default:
			fields[col] = coerceValue(raw)
		}
	}

	if !tsOK {
		metrics.RecordsDropped.WithLabelValues("bad_timestamp").Inc()
		return model.Record{}, false
	}

	metrics.RecordsIngested.Inc()
	return model.Record{
		DeviceID:  deviceID,
		Timestamp: timestamp,
		Fields:    n.resolver.Apply(fields),
	}, true
}

// NormalizeBatch 归一化一批行并按时间戳稳定排序
// 批处理模式下由此保证每个设备的记录按时间非递减到达规则管道
func (n *Normalizer) NormalizeBatch(rows []model.RawRow) []model.Record {
	records := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		if rec, ok := n.Normalize(row); ok {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	if dropped := len(rows) - len(records); dropped > 0 {
		n.logger.Warn("丢弃时间戳无法解析的行", zap.Int("dropped", dropped))
	}
	return records
}

// splitCompositeKey 解析 "设备ID|YYYY-MM-DDHH:MM:SS" 形式的复合主键
func splitCompositeKey(key string) (string, time.Time, bool) {
	device, rest, found := strings.Cut(key, fieldDelimiter)
	if !found {
		return device, time.Time{}, false
	}
	ts, ok := parseTimestamp(rest)
	return device, ts, ok
}

// parseTimestamp 先按主格式解析，失败后尝试备选格式
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(primaryTimeLayout, s); err == nil {
		return t, true
	}
	for _, layout := range fallbackTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// coerceTimestamp 列式行的时间值：TSDB 驱动返回 time.Time，CSV 返回字符串
func coerceTimestamp(raw interface{}) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		return parseTimestamp(v)
	default:
		return time.Time{}, false
	}
}

// parseFlag 位域子标志转数值，不可解析时按 0 处理
func parseFlag(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// coerceValue 普通字段：能转数值的转 float64，否则保留字符串
func coerceValue(raw interface{}) interface{} {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		return v
	default:
		return v
	}
}

func toString(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", raw)
}
