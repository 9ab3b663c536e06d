// pkg/engine/dedup.go
package engine

import "time"

// DedupGate 按 (规则, 设备) 抑制冷却间隔内的重复告警
// 单遍流式算法：按非递减时间戳扫描，贪心保留每个簇最早的时间戳，
// 批量重放和逐条实时运行产生完全相同的结果
type DedupGate struct {
	lastEmitted map[string]time.Time
}

// NewDedupGate 创建去重闸门
func NewDedupGate() *DedupGate {
	return &DedupGate{lastEmitted: make(map[string]time.Time)}
}

// Keep 判定一次告警触发是否保留
// 规则无去重间隔时总是保留；否则仅当距上次保留的告警
// 已满冷却间隔时保留，并把保留时间戳推进为当前值
func (g *DedupGate) Keep(rule *Rule, deviceID string, ts time.Time) bool {
	if rule.Dedup <= 0 {
		return true
	}

	key := rule.Name + "\x00" + deviceID
	last, ok := g.lastEmitted[key]
	if ok && ts.Sub(last) < rule.Dedup {
		return false
	}
	g.lastEmitted[key] = ts
	return true
}
