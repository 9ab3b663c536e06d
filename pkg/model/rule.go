// pkg/model/rule.go
package model

// RuleConfig 告警规则配置（rules.yaml 中的一条）
type RuleConfig struct {
	Name     string `yaml:"name"`
	Expr     string `yaml:"expr"`               // 布尔表达式，例如 "voltage > 250 and current < 0"
	Severity string `yaml:"severity,omitempty"` // info / warning / critical，默认 info
	Window   string `yaml:"window,omitempty"`   // 例如 "5m any"、"5m all"、"5m count 3"
	Dedup    string `yaml:"dedup,omitempty"`    // 例如 "10m"
	Message  string `yaml:"message,omitempty"`  // 默认使用规则名
}

// Severity 告警严重程度
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)
