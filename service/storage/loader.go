/*
 * @module service/storage/loader
 * @description 入库装载器：清洁批次按外键依赖顺序在单事务内写入，隔离记录与质量报告同事务归档
 * @architecture 分层架构 - 存储服务层
 * @documentReference ai_docs/banking_dq_pipeline.md
 * @stateFlow 清洁批次 -> 事务(实体按父子顺序入库 -> 隔离归档 -> 报告落库) -> 提交
 * @rules 装载全有或全无，事务内任一步失败整体回滚；查询接口供仪表盘API使用
 * @dependencies gorm.io/gorm, bankdq-service/service/models
 * @refs service/pipeline, api/controllers
 */

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"bankdq-service/service/models"
)

// Loader 数据库装载与查询
type Loader struct {
	db *gorm.DB
}

// NewLoader 创建装载器
func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db}
}

const insertBatchSize = 200

// Load 在单个事务内完成清洁批次入库、隔离归档和报告落库，
// 返回实际入库的业务记录数
func (l *Loader) Load(ctx context.Context, runID string, remediated *models.RemediationResult, report *models.Report) (int, error) {
	loaded := 0

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cleaned := remediated.CleanedBatch

		// 实体按父子顺序写入，保证外键约束满足
		if len(cleaned.Customers) > 0 {
			if err := tx.CreateInBatches(cleaned.Customers, insertBatchSize).Error; err != nil {
				return fmt.Errorf("客户入库失败: %w", err)
			}
		}
		if len(cleaned.FaceTemplates) > 0 {
			if err := tx.CreateInBatches(cleaned.FaceTemplates, insertBatchSize).Error; err != nil {
				return fmt.Errorf("人脸模板入库失败: %w", err)
			}
		}
		if len(cleaned.BankAccounts) > 0 {
			if err := tx.CreateInBatches(cleaned.BankAccounts, insertBatchSize).Error; err != nil {
				return fmt.Errorf("银行账户入库失败: %w", err)
			}
		}
		if len(cleaned.CustomerDevices) > 0 {
			if err := tx.CreateInBatches(cleaned.CustomerDevices, insertBatchSize).Error; err != nil {
				return fmt.Errorf("客户设备入库失败: %w", err)
			}
		}
		if len(cleaned.Transactions) > 0 {
			if err := tx.CreateInBatches(cleaned.Transactions, insertBatchSize).Error; err != nil {
				return fmt.Errorf("交易入库失败: %w", err)
			}
		}
		if len(cleaned.AuthenticationLogs) > 0 {
			if err := tx.CreateInBatches(cleaned.AuthenticationLogs, insertBatchSize).Error; err != nil {
				return fmt.Errorf("认证日志入库失败: %w", err)
			}
		}
		loaded = cleaned.TotalRecords()

		if err := l.archiveQuarantine(tx, runID, remediated); err != nil {
			return err
		}

		return l.persistReport(tx, runID, report)
	})
	if err != nil {
		return 0, err
	}
	return loaded, nil
}

// archiveQuarantine 隔离记录连同违规明细归档
func (l *Loader) archiveQuarantine(tx *gorm.DB, runID string, remediated *models.RemediationResult) error {
	violationsByKey := make(map[models.RecordKey][]models.Violation)
	for _, d := range remediated.Dispositions {
		if d.Action == models.ActionQuarantined {
			key := models.RecordKey{Entity: d.EntityType, ID: d.RecordID}
			violationsByKey[key] = d.ViolationsRemaining
		}
	}

	var archives []models.QuarantineRecord
	for _, entity := range models.EntityTypes {
		for _, rec := range remediated.Quarantined.Records(entity) {
			key := models.RecordKey{Entity: entity, ID: rec.RecordID()}

			payload, err := toJSONB(rec)
			if err != nil {
				return fmt.Errorf("隔离记录序列化失败: %w", err)
			}
			// JSONB列存对象，数组包一层
			violations, err := toJSONB(map[string]interface{}{"violations": violationsByKey[key]})
			if err != nil {
				return fmt.Errorf("违规明细序列化失败: %w", err)
			}

			archives = append(archives, models.QuarantineRecord{
				RunID:      runID,
				EntityType: entity,
				RecordID:   rec.RecordID(),
				Payload:    payload,
				Violations: violations,
			})
		}
	}

	if len(archives) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(archives, insertBatchSize).Error; err != nil {
		return fmt.Errorf("隔离归档失败: %w", err)
	}
	return nil
}

// persistReport 质量报告整体落库，按RunID唯一
func (l *Loader) persistReport(tx *gorm.DB, runID string, report *models.Report) error {
	payload, err := toJSONB(map[string]interface{}{"report": report})
	if err != nil {
		return fmt.Errorf("报告序列化失败: %w", err)
	}

	record := models.QualityReportRecord{
		RunID:           runID,
		Status:          report.Status,
		TotalRecords:    report.TotalRecords,
		TotalViolations: report.TotalViolations,
		Payload:         payload,
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("报告落库失败: %w", err)
	}
	return nil
}

// CreateRun 创建运行记录
func (l *Loader) CreateRun(ctx context.Context, run *models.PipelineRun) error {
	if err := l.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("创建运行记录失败: %w", err)
	}
	return nil
}

// UpdateRun 更新运行记录
func (l *Loader) UpdateRun(ctx context.Context, run *models.PipelineRun) error {
	if err := l.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("更新运行记录失败: %w", err)
	}
	return nil
}

// GetRun 按ID查询运行记录
func (l *Loader) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	var run models.PipelineRun
	if err := l.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	return &run, nil
}

// ListRuns 分页查询运行记录，按开始时间倒序
func (l *Loader) ListRuns(ctx context.Context, page, size int) ([]models.PipelineRun, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int64
	if err := l.db.WithContext(ctx).Model(&models.PipelineRun{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计运行记录失败: %w", err)
	}

	var runs []models.PipelineRun
	err := l.db.WithContext(ctx).
		Order("started_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&runs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询运行记录失败: %w", err)
	}
	return runs, total, nil
}

// GetReport 按运行ID查询质量报告
func (l *Loader) GetReport(ctx context.Context, runID string) (*models.QualityReportRecord, error) {
	var record models.QualityReportRecord
	if err := l.db.WithContext(ctx).First(&record, "run_id = ?", runID).Error; err != nil {
		return nil, fmt.Errorf("查询质量报告失败: %w", err)
	}
	return &record, nil
}

// LatestReport 查询最近一次运行的质量报告
func (l *Loader) LatestReport(ctx context.Context) (*models.QualityReportRecord, error) {
	var record models.QualityReportRecord
	if err := l.db.WithContext(ctx).Order("created_at DESC").First(&record).Error; err != nil {
		return nil, fmt.Errorf("查询最新质量报告失败: %w", err)
	}
	return &record, nil
}

// ListQuarantine 分页查询隔离记录，entity为空时不过滤实体类型
func (l *Loader) ListQuarantine(ctx context.Context, runID string, entity string, page, size int) ([]models.QuarantineRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	query := l.db.WithContext(ctx).Model(&models.QuarantineRecord{}).Where("run_id = ?", runID)
	if entity != "" {
		query = query.Where("entity_type = ?", entity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计隔离记录失败: %w", err)
	}

	var records []models.QuarantineRecord
	err := query.Order("created_at DESC, record_id").
		Offset((page - 1) * size).
		Limit(size).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询隔离记录失败: %w", err)
	}
	return records, total, nil
}

// toJSONB JSON序列化后还原为JSONB映射
func toJSONB(v interface{}) (models.JSONB, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out models.JSONB
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
