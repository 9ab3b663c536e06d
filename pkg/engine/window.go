// pkg/engine/window.go
package engine

import "time"

// windowEntry 窗口内的一个触发采样
type windowEntry struct {
	ts        time.Time
	triggered bool
}

// WindowState 单个 (规则, 设备) 的滑动窗口
// 条目按时间非递减排列，每次压入时从队首逐出超龄条目
// trueCount 随条目增删同步维护，判定均摊 O(1)
type WindowState struct {
	entries   []windowEntry
	trueCount int
}

// push 压入新采样并逐出早于 now-d 的条目
func (w *WindowState) push(ts time.Time, triggered bool, d time.Duration) {
	w.entries = append(w.entries, windowEntry{ts: ts, triggered: triggered})
	if triggered {
		w.trueCount++
	}

	cutoff := ts.Add(-d)
	evicted := 0
	for evicted < len(w.entries) && w.entries[evicted].ts.Before(cutoff) {
		if w.entries[evicted].triggered {
			w.trueCount--
		}
		evicted++
	}
	if evicted > 0 {
		w.entries = w.entries[evicted:]
	}
}

// firing 按策略归约窗口内的触发值
// 单条 true 采样同时满足 any 和 all（窗口内滚动 max/min 的语义）
func (w *WindowState) firing(policy WindowPolicy, threshold int) bool {
	switch policy {
	case PolicyAll:
		return len(w.entries) > 0 && w.trueCount == len(w.entries)
	case PolicyCount:
		return w.trueCount >= threshold
	default: // any
		return w.trueCount > 0
	}
}

// Aggregator 窗口聚合器，持有全部 (规则, 设备) 的窗口状态
// 状态归属它独有；按设备分片的 worker 各持一个实例，无需加锁
type Aggregator struct {
	states map[string]*WindowState
}

// NewAggregator 创建窗口聚合器
func NewAggregator() *Aggregator {
	return &Aggregator{states: make(map[string]*WindowState)}
}

// Push 压入一个触发值并返回窗口化后的告警判定
// 规则无窗口时直接透传触发值
func (a *Aggregator) Push(rule *Rule, deviceID string, ts time.Time, triggered bool) bool {
	if rule.Window == nil {
		return triggered
	}

	key := rule.Name + "\x00" + deviceID
	state, ok := a.states[key]
	if !ok {
		state = &WindowState{}
		a.states[key] = state
	}

	state.push(ts, triggered, rule.Window.Duration)
	return state.firing(rule.Window.Policy, rule.Window.Threshold)
}
