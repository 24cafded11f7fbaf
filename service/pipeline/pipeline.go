/*
 * @module service/pipeline/pipeline
 * @description 质量流水线编排：生成 -> 审计 -> 清洗 -> 报告 -> 入库，运行记录持久化，缓存与事件为尽力而为
 * @architecture 分层架构 - 流水线服务层
 * @documentReference ai_docs/banking_dq_pipeline.md
 * @stateFlow 创建运行记录 -> 各阶段顺序执行 -> 运行记录收尾(Success/SuccessWithWarnings/Failed)
 * @rules 同一服务实例同一时刻只允许一次运行；阶段失败时运行标记Failed并保留错误信息，已建运行记录必须收尾
 * @dependencies bankdq-service/service/{generator,audit,remediation,report,storage,models}, gorm.io/gorm
 * @refs api/controllers/pipeline_controller.go, service/pipeline/scheduler.go
 */

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"bankdq-service/service/audit"
	"bankdq-service/service/generator"
	"bankdq-service/service/models"
	"bankdq-service/service/remediation"
	"bankdq-service/service/report"
	"bankdq-service/service/storage"
)

// ErrRunInProgress 已有运行在进行中
var ErrRunInProgress = fmt.Errorf("已有流水线运行在进行中")

// Service 质量流水线服务
type Service struct {
	db          *gorm.DB
	generator   *generator.Generator
	auditEngine *audit.Engine
	remediation *remediation.Engine
	builder     *report.Builder
	loader      *storage.Loader
	metrics     *Metrics

	// 可选协作方，未配置时跳过对应阶段
	cache     *storage.ReportCache
	publisher *storage.RunEventPublisher

	running sync.Mutex
}

// NewService 创建流水线服务，规则目录显式注入
func NewService(db *gorm.DB, gen *generator.Generator, catalog *audit.Catalog) *Service {
	return &Service{
		db:          db,
		generator:   gen,
		auditEngine: audit.NewEngine(catalog),
		remediation: remediation.NewEngine(),
		builder:     report.NewBuilder(),
		loader:      storage.NewLoader(db),
		metrics:     SharedMetrics(),
	}
}

// SetReportCache 配置报告缓存
func (s *Service) SetReportCache(cache *storage.ReportCache) { s.cache = cache }

// SetEventPublisher 配置运行事件发布器
func (s *Service) SetEventPublisher(publisher *storage.RunEventPublisher) { s.publisher = publisher }

// Loader 返回装载器，供查询接口复用
func (s *Service) Loader() *storage.Loader { return s.loader }

// RunOnce 执行一次完整的质量流水线。并发调用时后到者立即返回ErrRunInProgress
func (s *Service) RunOnce(ctx context.Context) (*models.PipelineRun, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	startedAt := time.Now()
	run := &models.PipelineRun{StartedAt: startedAt, Status: models.RunStatusFailed}
	if err := s.loader.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	slog.Info("流水线运行开始", "run_id", run.ID)

	rpt, err := s.execute(ctx, run, startedAt)
	finishedAt := time.Now()
	run.FinishedAt = &finishedAt

	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
		slog.Error("流水线运行失败", "run_id", run.ID, "error", err.Error())
	}

	if saveErr := s.loader.UpdateRun(ctx, run); saveErr != nil {
		slog.Error("运行记录收尾失败", "run_id", run.ID, "error", saveErr.Error())
		if err == nil {
			err = saveErr
		}
	}

	s.metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	s.metrics.RunDuration.Observe(finishedAt.Sub(startedAt).Seconds())

	if err != nil {
		return run, err
	}

	// 缓存与事件发布是尽力而为，失败只记日志
	if s.cache != nil && rpt != nil {
		if cacheErr := s.cache.SetLatest(ctx, run.ID, rpt); cacheErr != nil {
			slog.Warn("报告缓存写入失败", "run_id", run.ID, "error", cacheErr.Error())
		}
	}
	if s.publisher != nil {
		if pubErr := s.publisher.Publish(ctx, run); pubErr != nil {
			slog.Warn("运行事件发布失败", "run_id", run.ID, "error", pubErr.Error())
		}
	}

	slog.Info("流水线运行完成",
		"run_id", run.ID,
		"status", string(run.Status),
		"total_records", run.TotalRecords,
		"violations", run.TotalViolations,
		"quarantined", run.QuarantinedRecords,
		"fixed", run.FixedRecords,
		"flagged", run.FlaggedRecords,
		"loaded", run.LoadedRecords)
	return run, nil
}

// execute 运行各阶段并填充运行记录，返回构建好的报告
func (s *Service) execute(ctx context.Context, run *models.PipelineRun, startedAt time.Time) (*models.Report, error) {
	batch := s.generator.Generate()
	run.TotalRecords = batch.TotalRecords()

	result := s.auditEngine.Audit(batch)
	run.TotalViolations = result.TotalViolations()
	for severity, count := range result.SeverityCounts {
		s.metrics.ViolationsTotal.WithLabelValues(string(severity)).Add(float64(count))
	}

	remediated, err := s.remediation.Remediate(batch, result)
	if err != nil {
		return nil, fmt.Errorf("清洗阶段失败: %w", err)
	}

	actionCounts := remediated.ActionCounts()
	run.QuarantinedRecords = actionCounts[models.ActionQuarantined]
	run.FixedRecords = actionCounts[models.ActionAutoFixed]
	run.FlaggedRecords = actionCounts[models.ActionFlagged]
	for action, count := range actionCounts {
		s.metrics.DispositionsTotal.WithLabelValues(string(action)).Add(float64(count))
	}

	rpt := s.builder.Build(batch, result, remediated)
	rpt.GeneratedAt = startedAt

	loaded, err := s.loader.Load(ctx, run.ID, remediated, rpt)
	if err != nil {
		return nil, fmt.Errorf("入库阶段失败: %w", err)
	}
	run.LoadedRecords = loaded
	run.Status = rpt.Status
	run.ReportLocation = fmt.Sprintf("quality_reports/run/%s", run.ID)
	return rpt, nil
}
