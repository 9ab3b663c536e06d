// pkg/scheduler/task.go
package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 任务调度器
// 周期性触发一次批量评估（例如每5分钟扫一遍最近的遥测窗口）
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler 创建任务调度器
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddBatchRun 注册周期性批量评估任务
func (s *Scheduler) AddBatchRun(spec string, run func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("触发周期性批量评估", zap.String("spec", spec))
		run()
	})
	return err
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
