package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StationAlert/pkg/mapping"
	"StationAlert/pkg/model"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	resolver, err := mapping.Load("", zap.NewNop())
	require.NoError(t, err)
	return NewNormalizer(DefaultOptions(), resolver, zap.NewNop())
}

func TestNormalizeCompositeKey(t *testing.T) {
	n := newTestNormalizer(t)

	// 日期和时间之间没有分隔符的主格式
	rec, ok := n.Normalize(model.RawRow{
		"PK":      "DEV7|2025-12-1514:47:10",
		"voltage": "231.5",
	})
	require.True(t, ok)
	assert.Equal(t, "DEV7", rec.DeviceID)
	assert.Equal(t, time.Date(2025, 12, 15, 14, 47, 10, 0, time.UTC), rec.Timestamp)
	assert.Equal(t, 231.5, rec.Fields["voltage"])
}

func TestNormalizeCompositeKeyFallbackFormat(t *testing.T) {
	n := newTestNormalizer(t)

	rec, ok := n.Normalize(model.RawRow{
		"PK": "DEV1|2025-12-15 14:47:10",
	})
	require.True(t, ok)
	assert.Equal(t, "DEV1", rec.DeviceID)
	assert.Equal(t, time.Date(2025, 12, 15, 14, 47, 10, 0, time.UTC), rec.Timestamp)
}

func TestNormalizeDropsBadTimestamp(t *testing.T) {
	n := newTestNormalizer(t)

	// 两种格式都解析不了的行被丢弃，不报错
	_, ok := n.Normalize(model.RawRow{"PK": "DEV1|not-a-time"})
	assert.False(t, ok)

	_, ok = n.Normalize(model.RawRow{"PK": "DEV1"})
	assert.False(t, ok)
}

func TestNormalizeColumnOriented(t *testing.T) {
	n := newTestNormalizer(t)

	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rec, ok := n.Normalize(model.RawRow{
		"ts":       ts,
		"equ_code": "DEV3",
		"power":    55.2,
	})
	require.True(t, ok)
	assert.Equal(t, "DEV3", rec.DeviceID)
	assert.Equal(t, ts, rec.Timestamp)
	assert.Equal(t, 55.2, rec.Fields["power"])
}

func TestNormalizerDefaultsColumnsIndependently(t *testing.T) {
	resolver, err := mapping.Load("", zap.NewNop())
	require.NoError(t, err)

	// 纯列式数据源只配置时间列和设备列，不能被整组默认值覆盖
	n := NewNormalizer(Options{TimeColumn: "collected_at", DeviceColumn: "inverter"}, resolver, zap.NewNop())

	rec, ok := n.Normalize(model.RawRow{
		"collected_at": "2025-12-15 08:00:00",
		"inverter":     "DEV5",
		"bit":          "1|0",
	})
	require.True(t, ok)
	assert.Equal(t, "DEV5", rec.DeviceID)
	assert.Equal(t, time.Date(2025, 12, 15, 8, 0, 0, 0, time.UTC), rec.Timestamp)
	// 未指定的位域列名仍取默认值
	assert.Equal(t, 1.0, rec.Fields["bit_0"])
	assert.Equal(t, 0.0, rec.Fields["bit_1"])
}

func TestBitfieldExpansion(t *testing.T) {
	n := newTestNormalizer(t)

	rec, ok := n.Normalize(model.RawRow{
		"PK":  "DEV1|2025-12-1500:00:00",
		"bit": "1|0|1|1",
	})
	require.True(t, ok)
	assert.Equal(t, 1.0, rec.Fields["bit_0"])
	assert.Equal(t, 0.0, rec.Fields["bit_1"])
	assert.Equal(t, 1.0, rec.Fields["bit_2"])
	assert.Equal(t, 1.0, rec.Fields["bit_3"])
	assert.NotContains(t, rec.Fields, "bit")
}

func TestBitfieldUnparseableFlagDefaultsToZero(t *testing.T) {
	n := newTestNormalizer(t)

	rec, ok := n.Normalize(model.RawRow{
		"PK":  "DEV1|2025-12-1500:00:00",
		"bit": "1|x|1",
	})
	require.True(t, ok)
	assert.Equal(t, 1.0, rec.Fields["bit_0"])
	assert.Equal(t, 0.0, rec.Fields["bit_1"])
	assert.Equal(t, 1.0, rec.Fields["bit_2"])
}

func TestBitfieldAlreadyNumericPassesThrough(t *testing.T) {
	n := newTestNormalizer(t)

	// 上游已归一化的数值不再做位域展开
	rec, ok := n.Normalize(model.RawRow{
		"PK":  "DEV1|2025-12-1500:00:00",
		"bit": 5.0,
	})
	require.True(t, ok)
	assert.Equal(t, 5.0, rec.Fields["bit"])
	assert.NotContains(t, rec.Fields, "bit_0")
}

func TestNormalizeBatchSortsByTimestamp(t *testing.T) {
	n := newTestNormalizer(t)

	records := n.NormalizeBatch([]model.RawRow{
		{"PK": "DEV1|2025-12-1500:02:00"},
		{"PK": "DEV2|2025-12-1500:00:00"},
		{"PK": "DEV1|2025-12-1500:01:00"},
		{"PK": "DEV1|bogus"}, // 丢弃
	})
	require.Len(t, records, 3)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Timestamp.Before(records[i-1].Timestamp))
	}
}

func TestNormalizeAppliesMapping(t *testing.T) {
	// 用JSON映射验证字段重命名发生在位域展开之后
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ct": "voltage", "bit_0": "running"}`), 0o644))
	mapped, err := mapping.Load(path, zap.NewNop())
	require.NoError(t, err)

	n := NewNormalizer(DefaultOptions(), mapped, zap.NewNop())
	rec, ok := n.Normalize(model.RawRow{
		"PK":  "DEV1|2025-12-1500:00:00",
		"ct":  "230.1",
		"bit": "1|0",
	})
	require.True(t, ok)
	assert.Equal(t, 230.1, rec.Fields["voltage"])
	assert.Equal(t, 1.0, rec.Fields["running"])
}
