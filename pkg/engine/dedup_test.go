package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"StationAlert/pkg/model"
)

func TestDedupNoIntervalAlwaysKeeps(t *testing.T) {
	gate := NewDedupGate()
	rule := mustCompile(t, model.RuleConfig{Name: "r", Expr: "true"})
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, gate.Keep(rule, "DEV1", t0))
	assert.True(t, gate.Keep(rule, "DEV1", t0.Add(time.Second)))
}

func TestDedupClusterKeepsEarliest(t *testing.T) {
	gate := NewDedupGate()
	rule := mustCompile(t, model.RuleConfig{Name: "r", Expr: "true", Dedup: "10m"})
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 间隔内的连续触发只保留簇首
	assert.True(t, gate.Keep(rule, "DEV1", t0))
	assert.False(t, gate.Keep(rule, "DEV1", t0.Add(time.Minute)))
	assert.False(t, gate.Keep(rule, "DEV1", t0.Add(9*time.Minute)))
	// 距上次保留的告警满间隔后放行
	assert.True(t, gate.Keep(rule, "DEV1", t0.Add(10*time.Minute)))
	assert.False(t, gate.Keep(rule, "DEV1", t0.Add(11*time.Minute)))
}

func TestDedupStatePerRuleAndDevice(t *testing.T) {
	gate := NewDedupGate()
	ruleA := mustCompile(t, model.RuleConfig{Name: "a", Expr: "true", Dedup: "10m"})
	ruleB := mustCompile(t, model.RuleConfig{Name: "b", Expr: "true", Dedup: "10m"})
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, gate.Keep(ruleA, "DEV1", t0))
	// 不同规则和不同设备互不影响
	assert.True(t, gate.Keep(ruleB, "DEV1", t0))
	assert.True(t, gate.Keep(ruleA, "DEV2", t0))
	assert.False(t, gate.Keep(ruleA, "DEV1", t0.Add(time.Minute)))
}

func TestDedupStreamingMatchesBatch(t *testing.T) {
	// 同一串时间戳逐条过闸和批量重放必须产生相同结果
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	timestamps := []time.Time{
		t0,
		t0.Add(3 * time.Minute),
		t0.Add(11 * time.Minute),
		t0.Add(12 * time.Minute),
		t0.Add(30 * time.Minute),
	}

	run := func() []bool {
		gate := NewDedupGate()
		rule := mustCompile(t, model.RuleConfig{Name: "r", Expr: "true", Dedup: "10m"})
		var kept []bool
		for _, ts := range timestamps {
			kept = append(kept, gate.Keep(rule, "DEV1", ts))
		}
		return kept
	}

	first := run()
	assert.Equal(t, []bool{true, false, true, false, true}, first)
	assert.Equal(t, first, run())
}
