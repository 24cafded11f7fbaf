/*
 * @module service/models/audit_models
 * @description 数据质量审计值对象，包含严重级别、违规记录、审计结果、处置决定和质量报告
 * @architecture 数据模型层
 * @documentReference ai_docs/banking_dq_audit.md
 * @stateFlow 规则评估产生违规 -> 审计结果汇总 -> 清洗处置 -> 报告聚合
 * @rules 违规是一等值而非异常，审计结果对同一批次可重复推导且完全确定
 * @dependencies time
 * @refs service/audit, service/remediation, service/report
 */

package models

import "time"

// Severity 违规严重级别，Critical > High > Medium > Low
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Severities 严重级别的固定排序（从高到低）
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank 严重级别序数，用于排序和比较
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Violation 单条规则对单条记录的违规，规则评估的唯一输出
type Violation struct {
	RuleName      string     `json:"rule_name"`
	Severity      Severity   `json:"severity"`
	EntityType    EntityType `json:"entity_type"`
	RecordID      string     `json:"record_id"`
	Fields        []string   `json:"fields,omitempty"`
	Message       string     `json:"message"`
	ObservedValue string     `json:"observed_value,omitempty"`
}

// RecordKey 批次内记录的唯一键，标识符仅保证在单个集合内唯一
type RecordKey struct {
	Entity EntityType `json:"entity"`
	ID     string     `json:"id"`
}

// KeyOf 构造记录键
func KeyOf(v Violation) RecordKey {
	return RecordKey{Entity: v.EntityType, ID: v.RecordID}
}

// AuditResult 一次审计的完整结果，对同一批次重复审计产生完全相同的结果
type AuditResult struct {
	ExaminedCounts map[EntityType]int        `json:"examined_counts"`
	SeverityCounts map[Severity]int          `json:"severity_counts"`
	Violations     []Violation               `json:"violations"`
	ByRecord       map[RecordKey][]Violation `json:"-"`
	FailedRecords  map[RecordKey]bool        `json:"-"`
	FlaggedRecords map[RecordKey]bool        `json:"-"`
}

// TotalViolations 违规总数
func (r *AuditResult) TotalViolations() int {
	return len(r.Violations)
}

// HasBlocking 是否存在Critical/High级别违规
func (r *AuditResult) HasBlocking() bool {
	return r.SeverityCounts[SeverityCritical] > 0 || r.SeverityCounts[SeverityHigh] > 0
}

// DispositionAction 清洗处置动作
type DispositionAction string

const (
	ActionQuarantined DispositionAction = "Quarantined"
	ActionAutoFixed   DispositionAction = "AutoFixed"
	ActionFlagged     DispositionAction = "Flagged"
)

// Disposition 单条记录的清洗处置结果
type Disposition struct {
	RecordID            string            `json:"record_id"`
	EntityType          EntityType        `json:"entity_type"`
	Action              DispositionAction `json:"action"`
	ViolationsResolved  []Violation       `json:"violations_resolved,omitempty"`
	ViolationsRemaining []Violation       `json:"violations_remaining,omitempty"`
}

// RemediationResult 清洗引擎的完整输出
type RemediationResult struct {
	CleanedBatch *Batch        `json:"cleaned_batch"`
	Quarantined  *Batch        `json:"quarantined"`
	Dispositions []Disposition `json:"dispositions"`
}

// ActionCounts 按处置动作统计
func (r *RemediationResult) ActionCounts() map[DispositionAction]int {
	counts := make(map[DispositionAction]int)
	for _, d := range r.Dispositions {
		counts[d.Action]++
	}
	return counts
}

// RunStatus 单次运行的整体状态
type RunStatus string

const (
	RunStatusSuccess             RunStatus = "Success"
	RunStatusSuccessWithWarnings RunStatus = "SuccessWithWarnings"
	RunStatusFailed              RunStatus = "Failed"
)

// EntitySummary 报告中单实体的汇总段
type EntitySummary struct {
	Examined    int `json:"examined"`
	Failed      int `json:"failed"`
	Flagged     int `json:"flagged"`
	Quarantined int `json:"quarantined"`
	AutoFixed   int `json:"auto_fixed"`
}

// RuleSample 报告中单条规则的抽样违规，按严重级别和记录ID排序后截断
type RuleSample struct {
	RuleName   string      `json:"rule_name"`
	Severity   Severity    `json:"severity"`
	Total      int         `json:"total"`
	Violations []Violation `json:"violations"`
}

// Report 审计与清洗结果的纯投影，同样的输入序列化后字节级一致
type Report struct {
	GeneratedAt      time.Time                    `json:"generated_at"`
	Status           RunStatus                    `json:"status"`
	TotalRecords     int                          `json:"total_records"`
	TotalViolations  int                          `json:"total_violations"`
	CountsByRule     map[string]int               `json:"counts_by_rule"`
	CountsBySeverity map[Severity]int             `json:"counts_by_severity"`
	CountsByEntity   map[EntityType]int           `json:"counts_by_entity"`
	CountsByAction   map[DispositionAction]int    `json:"counts_by_action"`
	EntitySummaries  map[EntityType]EntitySummary `json:"entity_summaries"`
	Samples          []RuleSample                 `json:"samples"`
}
