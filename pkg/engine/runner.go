// pkg/engine/runner.go
package engine

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"StationAlert/pkg/model"
)

// Runner 按设备哈希分片的并行评估器
// 同一设备恒定落在同一个 worker，设备内严格按提交顺序串行处理，
// 因此每个 worker 独占自己那份窗口/去重状态，不需要锁
// 告警通过有界通道向外交付，满时阻塞形成背压
type Runner struct {
	workers   []chan model.Record
	pipelines []*Pipeline
	alertChan chan model.AlertEvent
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// NewRunner 创建评估器
// rules 为只读共享的活跃规则集；workers 是分片数；bufferSize 是
// 每个分片输入队列和告警输出通道的长度
func NewRunner(rules []*Rule, workers, bufferSize int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	r := &Runner{
		workers:   make([]chan model.Record, workers),
		pipelines: make([]*Pipeline, workers),
		alertChan: make(chan model.AlertEvent, bufferSize),
		logger:    logger,
	}
	for i := range r.workers {
		r.workers[i] = make(chan model.Record, bufferSize)
		r.pipelines[i] = NewPipeline(rules, logger)
	}
	return r
}

// Start 启动全部 worker
// ctx 取消时停止消费新输入，各分片的在途状态直接废弃，不做排空
func (r *Runner) Start(ctx context.Context) {
	for i := range r.workers {
		r.wg.Add(1)
		go func(idx int) {
			defer r.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case rec, ok := <-r.workers[idx]:
					if !ok {
						return
					}
					for _, alert := range r.pipelines[idx].Process(rec) {
						select {
						case r.alertChan <- alert:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}(i)
	}

	go func() {
		r.wg.Wait()
		close(r.alertChan)
	}()
}

// Submit 提交一条归一化记录，按设备哈希路由到固定分片
// 分片队列满时阻塞，由摄入方向上游施加背压
func (r *Runner) Submit(rec model.Record) {
	r.workers[r.shard(rec.DeviceID)] <- rec
}

// Close 声明输入结束；全部在途记录处理完后告警通道关闭
func (r *Runner) Close() {
	for _, ch := range r.workers {
		close(ch)
	}
}

// Alerts 告警输出通道
func (r *Runner) Alerts() <-chan model.AlertEvent {
	return r.alertChan
}

func (r *Runner) shard(deviceID string) int {
	h := fnv.New32a()
	h.Write([]byte(deviceID))
	return int(h.Sum32() % uint32(len(r.workers)))
}
