package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StationAlert/pkg/model"
)

func record(device string, fields map[string]interface{}) model.Record {
	return model.Record{
		DeviceID:  device,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Fields:    fields,
	}
}

func TestCompileAndEvaluate(t *testing.T) {
	rule, err := Compile(model.RuleConfig{
		Name: "overvoltage",
		Expr: "voltage > 250",
	})
	require.NoError(t, err)

	triggered, err := rule.Evaluate(record("DEV1", map[string]interface{}{"voltage": 260.0}))
	require.NoError(t, err)
	assert.True(t, triggered)

	triggered, err = rule.Evaluate(record("DEV1", map[string]interface{}{"voltage": 240.0}))
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestCompileDefaults(t *testing.T) {
	rule, err := Compile(model.RuleConfig{Name: "r1", Expr: "true"})
	require.NoError(t, err)
	assert.Equal(t, model.SeverityInfo, rule.Severity)
	assert.Equal(t, "r1", rule.Message)
	assert.Nil(t, rule.Window)
	assert.Zero(t, rule.Dedup)
}

func TestCompileSyntaxErrorIsLoadTime(t *testing.T) {
	_, err := Compile(model.RuleConfig{Name: "broken", Expr: "voltage >"})
	require.Error(t, err)

	var compileErr *RuleCompileError
	assert.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "broken", compileErr.Rule)
}

func TestEvaluateMissingFieldFailsSoft(t *testing.T) {
	rule, err := Compile(model.RuleConfig{Name: "r", Expr: "voltage > 250"})
	require.NoError(t, err)

	// 缺字段是单条求值失败，调用方按false处理
	triggered, err := rule.Evaluate(record("DEV1", map[string]interface{}{"power": 1.0}))
	assert.Error(t, err)
	assert.False(t, triggered)
}

func TestEvaluateNonBooleanResult(t *testing.T) {
	rule, err := Compile(model.RuleConfig{Name: "r", Expr: "voltage + 1"})
	require.NoError(t, err)

	_, err = rule.Evaluate(record("DEV1", map[string]interface{}{"voltage": 1.0}))
	assert.Error(t, err)
}

func TestEvaluateDeviceIDAvailable(t *testing.T) {
	rule, err := Compile(model.RuleConfig{Name: "r", Expr: `device_id == "DEV7"`})
	require.NoError(t, err)

	triggered, err := rule.Evaluate(record("DEV7", map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		spec      string
		policy    WindowPolicy
		duration  time.Duration
		threshold int
		wantErr   bool
	}{
		{spec: "5m any", policy: PolicyAny, duration: 5 * time.Minute},
		{spec: "5m", policy: PolicyAny, duration: 5 * time.Minute},
		{spec: "1h all", policy: PolicyAll, duration: time.Hour},
		{spec: "30s count 3", policy: PolicyCount, duration: 30 * time.Second, threshold: 3},
		{spec: "30s sum 2", policy: PolicyCount, duration: 30 * time.Second, threshold: 2},
		{spec: "30s count", wantErr: true}, // count 必须显式给出阈值
		{spec: "30s count 0", wantErr: true},
		{spec: "xx any", wantErr: true},
		{spec: "5m bogus", wantErr: true},
	}

	for _, tt := range tests {
		w, err := parseWindow(tt.spec)
		if tt.wantErr {
			assert.Error(t, err, tt.spec)
			continue
		}
		require.NoError(t, err, tt.spec)
		assert.Equal(t, tt.policy, w.Policy, tt.spec)
		assert.Equal(t, tt.duration, w.Duration, tt.spec)
		assert.Equal(t, tt.threshold, w.Threshold, tt.spec)
	}
}

func TestCompileBadWindowIsLoadError(t *testing.T) {
	_, err := Compile(model.RuleConfig{Name: "r", Expr: "true", Window: "5x any"})
	assert.Error(t, err)

	_, err = Compile(model.RuleConfig{Name: "r", Expr: "true", Dedup: "yesterday"})
	assert.Error(t, err)
}

func TestRenderMessage(t *testing.T) {
	rule, err := Compile(model.RuleConfig{
		Name:    "overvoltage",
		Expr:    "true",
		Message: "设备 {device_id} 触发 {rule_name}",
	})
	require.NoError(t, err)
	assert.Equal(t, "设备 DEV1 触发 overvoltage", rule.RenderMessage("DEV1"))
}

func TestLoadRulesSkipsBrokenRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
- name: good
  expr: "voltage > 250"
- name: broken
  expr: "voltage >"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := LoadRules(path, zap.NewNop())
	require.NoError(t, err)
	// 编译失败的规则被排除，其余规则继续生效
	require.Len(t, rules, 1)
	assert.Equal(t, "good", rules[0].Name)
}

func TestLoadRulesRejectsDuplicateNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
- name: r1
  expr: "true"
- name: r1
  expr: "false"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadRules(path, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadRulesStructuralErrorIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml list"), 0o644))

	_, err := LoadRules(path, zap.NewNop())
	assert.Error(t, err)
}
