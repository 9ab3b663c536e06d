// pkg/engine/rule.go
package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"StationAlert/pkg/model"
)

// RuleCompileError 单条规则表达式非法
// 加载时该规则被排除出活跃规则集，其余规则继续生效
type RuleCompileError struct {
	Rule string
	Err  error
}

func (e *RuleCompileError) Error() string {
	return fmt.Sprintf("编译规则 %q 失败: %v", e.Rule, e.Err)
}

func (e *RuleCompileError) Unwrap() error { return e.Err }

// WindowPolicy 滑动窗口聚合策略
type WindowPolicy string

const (
	PolicyAny   WindowPolicy = "any"   // 窗口内任一触发即告警
	PolicyAll   WindowPolicy = "all"   // 窗口内全部触发才告警
	PolicyCount WindowPolicy = "count" // 窗口内触发数达到阈值才告警
)

// WindowSpec 窗口时长加聚合策略，例如 "5m any"、"30s count 3"
// count 策略必须显式给出阈值
type WindowSpec struct {
	Duration  time.Duration
	Policy    WindowPolicy
	Threshold int
}

// Rule 编译后的告警规则
// 表达式在加载时编译一次，逐条记录求值时不再解析
type Rule struct {
	Name     string
	Severity model.Severity
	Message  string
	Window   *WindowSpec
	Dedup    time.Duration

	program *vm.Program
}

// Compile 编译一条规则配置
func Compile(cfg model.RuleConfig) (*Rule, error) {
	if cfg.Name == "" {
		return nil, &RuleCompileError{Rule: cfg.Name, Err: fmt.Errorf("规则缺少名称")}
	}
	if cfg.Expr == "" {
		return nil, &RuleCompileError{Rule: cfg.Name, Err: fmt.Errorf("规则缺少表达式")}
	}

	program, err := expr.Compile(cfg.Expr, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, &RuleCompileError{Rule: cfg.Name, Err: err}
	}

	rule := &Rule{
		Name:     cfg.Name,
		Severity: model.Severity(cfg.Severity),
		Message:  cfg.Message,
		program:  program,
	}
	if rule.Severity == "" {
		rule.Severity = model.SeverityInfo
	}
	if rule.Message == "" {
		rule.Message = cfg.Name
	}

	if cfg.Window != "" {
		window, err := parseWindow(cfg.Window)
		if err != nil {
			return nil, &RuleCompileError{Rule: cfg.Name, Err: err}
		}
		rule.Window = window
	}
	if cfg.Dedup != "" {
		dedup, err := time.ParseDuration(cfg.Dedup)
		if err != nil || dedup <= 0 {
			return nil, &RuleCompileError{Rule: cfg.Name, Err: fmt.Errorf("去重间隔 %q 非法", cfg.Dedup)}
		}
		rule.Dedup = dedup
	}

	return rule, nil
}

// Evaluate 对一条记录求值，返回触发值
// 缺字段、类型不匹配等单条求值失败向上返回错误，调用方按 false 处理
func (r *Rule) Evaluate(rec model.Record) (bool, error) {
	env := make(map[string]interface{}, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		env[k] = v
	}
	env["device_id"] = rec.DeviceID

	result, err := expr.Run(r.program, env)
	if err != nil {
		return false, err
	}
	triggered, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("表达式结果不是布尔值: %T", result)
	}
	return triggered, nil
}

// RenderMessage 渲染告警消息，仅做设备ID和规则名替换
func (r *Rule) RenderMessage(deviceID string) string {
	msg := strings.ReplaceAll(r.Message, "{device_id}", deviceID)
	return strings.ReplaceAll(msg, "{rule_name}", r.Name)
}

// parseWindow 解析窗口说明
// 时长无法解析、策略未知或 count 缺少阈值都是规则加载错误
func parseWindow(spec string) (*WindowSpec, error) {
	parts := strings.Fields(spec)
	if len(parts) == 0 {
		return nil, fmt.Errorf("窗口说明为空")
	}

	duration, err := time.ParseDuration(parts[0])
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("窗口时长 %q 非法", parts[0])
	}

	w := &WindowSpec{Duration: duration, Policy: PolicyAny}
	if len(parts) > 1 {
		switch WindowPolicy(parts[1]) {
		case PolicyAny:
			w.Policy = PolicyAny
		case PolicyAll:
			w.Policy = PolicyAll
		case PolicyCount, "sum":
			w.Policy = PolicyCount
			if len(parts) < 3 {
				return nil, fmt.Errorf("count 策略必须显式给出阈值，例如 %q", parts[0]+" count 3")
			}
			threshold, err := strconv.Atoi(parts[2])
			if err != nil || threshold < 1 {
				return nil, fmt.Errorf("count 阈值 %q 非法", parts[2])
			}
			w.Threshold = threshold
		default:
			return nil, fmt.Errorf("未知窗口策略 %q", parts[1])
		}
	}
	return w, nil
}

// LoadRules 从 YAML 文件加载并编译规则集
// 文件层面的结构错误是致命的；单条规则编译失败记录警告后跳过
func LoadRules(path string, logger *zap.Logger) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取规则文件失败: %w", err)
	}

	var configs []model.RuleConfig
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("解析规则文件失败: %w", err)
	}

	rules := make([]*Rule, 0, len(configs))
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		if seen[cfg.Name] {
			return nil, fmt.Errorf("规则名 %q 重复", cfg.Name)
		}
		seen[cfg.Name] = true

		rule, err := Compile(cfg)
		if err != nil {
			logger.Warn("规则编译失败，已排除", zap.String("rule", cfg.Name), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}

	logger.Info("规则集加载完成",
		zap.String("path", path),
		zap.Int("loaded", len(rules)),
		zap.Int("skipped", len(configs)-len(rules)),
	)
	return rules, nil
}
