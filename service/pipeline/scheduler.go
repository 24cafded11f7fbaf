/*
 * @module service/pipeline/scheduler
 * @description 流水线定时调度器：按cron表达式（秒级精度）触发每日质量运行，默认每天02:00
 * @architecture 分层架构 - 流水线服务层
 * @stateFlow 启动 -> 注册cron任务 -> 到点触发RunOnce -> 停止时等待在途任务
 * @rules 上一次运行未结束时触发的运行立即跳过；调度表达式非法在启动期失败
 * @dependencies github.com/robfig/cron/v3
 * @refs service/init.go
 */

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultCronSpec 默认每天凌晨02:00运行
const DefaultCronSpec = "0 0 2 * * *"

// Scheduler 流水线定时调度器
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	spec    string
}

// NewScheduler 创建调度器，spec为空时使用默认表达式
func NewScheduler(service *Service, spec string) *Scheduler {
	if spec == "" {
		spec = DefaultCronSpec
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		service: service,
		spec:    spec,
	}
}

// Start 注册并启动定时任务
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		slog.Info("定时触发流水线运行", "spec", s.spec)
		if _, err := s.service.RunOnce(context.Background()); err != nil {
			if err == ErrRunInProgress {
				slog.Warn("上一次运行尚未结束，本次定时触发跳过")
				return
			}
			slog.Error("定时运行失败", "error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("注册定时任务失败: %w", err)
	}

	s.cron.Start()
	slog.Info("流水线调度器已启动", "spec", s.spec)
	return nil
}

// Stop 停止调度并等待在途任务完成
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("流水线调度器已停止")
}
