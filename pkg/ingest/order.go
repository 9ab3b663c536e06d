// pkg/ingest/order.go
package ingest

import (
	"container/heap"
	"sync"
	"time"

	"StationAlert/pkg/metrics"
	"StationAlert/pkg/model"
)

// ReorderBuffer 流式摄入的有界乱序缓冲
// 水位线取已见过的最大时间戳；比水位线落后超过 lateness 的记录
// 丢弃并计入迟到计数，其余按时间戳顺序刷出
// Push 来自消费者回调，Close 来自关停路径，两者可能并发，内部加锁串行化
type ReorderBuffer struct {
	mu        sync.Mutex
	closed    bool
	lateness  time.Duration
	watermark time.Time
	pending   recordHeap
	emit      func(model.Record)
}

// NewReorderBuffer 创建乱序缓冲，emit 按非递减时间戳被调用
func NewReorderBuffer(lateness time.Duration, emit func(model.Record)) *ReorderBuffer {
	return &ReorderBuffer{
		lateness: lateness,
		emit:     emit,
	}
}

// Push 压入一条记录，可能触发零或多条已就绪记录的刷出
// Close 之后的压入直接丢弃
func (b *ReorderBuffer) Push(rec model.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	if !b.watermark.IsZero() && rec.Timestamp.Before(b.watermark.Add(-b.lateness)) {
		metrics.RecordsDropped.WithLabelValues("late").Inc()
		return
	}
	heap.Push(&b.pending, rec)
	if rec.Timestamp.After(b.watermark) {
		b.watermark = rec.Timestamp
	}

	// 刷出已越过乱序容忍窗口的记录
	cutoff := b.watermark.Add(-b.lateness)
	for b.pending.Len() > 0 && !b.pending[0].Timestamp.After(cutoff) {
		b.emit(heap.Pop(&b.pending).(model.Record))
	}
}

// Flush 按顺序刷出全部剩余记录
func (b *ReorderBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()
}

// Close 刷出剩余记录并封口缓冲
// 返回之后 emit 不会再被调用，下游可以安全关闭
func (b *ReorderBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()
	b.closed = true
}

func (b *ReorderBuffer) drain() {
	for b.pending.Len() > 0 {
		b.emit(heap.Pop(&b.pending).(model.Record))
	}
}

// Pending 当前缓冲的记录数
func (b *ReorderBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Len()
}

// recordHeap 按时间戳排序的最小堆
type recordHeap []model.Record

func (h recordHeap) Len() int            { return len(h) }
func (h recordHeap) Less(i, j int) bool  { return h[i].Timestamp.Before(h[j].Timestamp) }
func (h recordHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *recordHeap) Push(x interface{}) { *h = append(*h, x.(model.Record)) }
func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
