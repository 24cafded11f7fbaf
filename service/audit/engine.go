/*
 * @module service/audit/engine
 * @description 审计引擎：对批次按固定顺序执行规则目录，汇总违规并划分失败/标记集合，规则panic降级为evaluation_error违规
 * @architecture 分层架构 - 审计服务层
 * @documentReference ai_docs/banking_dq_audit.md
 * @stateFlow 构建索引 -> 按实体顺序逐记录逐规则评估 -> 填充规则元数据 -> 汇总计数
 * @rules 审计只读不修改批次；同一批次重复审计结果完全一致；单条规则失败不中断整体审计
 * @dependencies bankdq-service/service/models, log/slog
 * @refs service/remediation, service/report
 */

package audit

import (
	"fmt"
	"log/slog"

	"bankdq-service/service/models"
)

// Engine 审计引擎，持有注入的规则目录，无全局状态
type Engine struct {
	catalog *Catalog
}

// NewEngine 创建审计引擎
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Audit 审计一个批次。遍历顺序固定：实体类型按EntityTypes顺序、
// 记录按集合内顺序、规则按目录注册顺序，保证结果确定
func (e *Engine) Audit(batch *models.Batch) *models.AuditResult {
	idx := NewBatchIndex(batch)

	result := &models.AuditResult{
		ExaminedCounts: batch.CountByEntity(),
		SeverityCounts: make(map[models.Severity]int),
		ByRecord:       make(map[models.RecordKey][]models.Violation),
		FailedRecords:  make(map[models.RecordKey]bool),
		FlaggedRecords: make(map[models.RecordKey]bool),
	}

	for _, entity := range models.EntityTypes {
		rules := e.catalog.RulesFor(entity)
		for _, rec := range batch.Records(entity) {
			for _, rule := range rules {
				violations := e.evaluate(rule, rec, idx)
				for _, v := range violations {
					result.Violations = append(result.Violations, v)
					result.SeverityCounts[v.Severity]++
					key := models.KeyOf(v)
					result.ByRecord[key] = append(result.ByRecord[key], v)
					if v.Severity == models.SeverityCritical || v.Severity == models.SeverityHigh {
						result.FailedRecords[key] = true
					}
				}
			}
		}
	}

	// 有违规但未失败的记录进入标记集合
	for key := range result.ByRecord {
		if !result.FailedRecords[key] {
			result.FlaggedRecords[key] = true
		}
	}

	return result
}

// evaluate 执行单条规则并补齐违规元数据，规则panic被捕获并
// 降级为该记录上的一条Critical级evaluation_error违规
func (e *Engine) evaluate(rule Rule, rec models.Record, idx *BatchIndex) (violations []models.Violation) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("规则评估异常",
				"rule", rule.Name,
				"entity", string(rec.EntityKind()),
				"record_id", rec.RecordID(),
				"panic", fmt.Sprintf("%v", r))
			violations = []models.Violation{{
				RuleName:   RuleEvaluationError,
				Severity:   models.SeverityCritical,
				EntityType: rec.EntityKind(),
				RecordID:   rec.RecordID(),
				Fields:     nil,
				Message:    fmt.Sprintf("规则 %s 评估失败: %v", rule.Name, r),
			}}
		}
	}()

	raw := rule.Check(rec, idx)
	violations = make([]models.Violation, 0, len(raw))
	for _, v := range raw {
		v.RuleName = rule.Name
		v.Severity = rule.Severity
		v.EntityType = rec.EntityKind()
		v.RecordID = rec.RecordID()
		violations = append(violations, v)
	}
	return violations
}
