/*
 * @module service/report/builder
 * @description 质量报告构建器：审计结果与处置决定的纯投影，空输入产出显式清零的报告而非空对象
 * @architecture 分层架构 - 报告服务层
 * @stateFlow 审计结果 + 处置列表 -> 计数聚合 -> 违规抽样排序截断 -> 报告
 * @rules 构建是纯函数，同样输入产出的报告JSON序列化后字节级一致；生成时间由调用方注入
 * @dependencies bankdq-service/service/models
 * @refs service/pipeline, api/controllers
 */

package report

import (
	"sort"

	"bankdq-service/service/models"
)

// DefaultSampleLimit 每条规则保留的违规样例上限
const DefaultSampleLimit = 5

// Builder 报告构建器
type Builder struct {
	sampleLimit int
}

// NewBuilder 创建报告构建器，样例上限使用默认值
func NewBuilder() *Builder {
	return &Builder{sampleLimit: DefaultSampleLimit}
}

// NewBuilderWithSampleLimit 创建指定样例上限的报告构建器
func NewBuilderWithSampleLimit(limit int) *Builder {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	return &Builder{sampleLimit: limit}
}

// Build 汇总审计结果与清洗处置为质量报告。
// 所有map显式初始化，空批次得到全零报告；状态规则：
// 存在未消解违规的记录仍留在清洁批次时为SuccessWithWarnings，否则Success
func (b *Builder) Build(batch *models.Batch, result *models.AuditResult, remediated *models.RemediationResult) *models.Report {
	rpt := &models.Report{
		Status:           models.RunStatusSuccess,
		CountsByRule:     make(map[string]int),
		CountsBySeverity: make(map[models.Severity]int),
		CountsByEntity:   make(map[models.EntityType]int),
		CountsByAction:   make(map[models.DispositionAction]int),
		EntitySummaries:  make(map[models.EntityType]models.EntitySummary),
		Samples:          []models.RuleSample{},
	}

	for _, entity := range models.EntityTypes {
		rpt.EntitySummaries[entity] = models.EntitySummary{}
	}
	for _, severity := range models.Severities {
		rpt.CountsBySeverity[severity] = 0
	}

	if batch != nil {
		rpt.TotalRecords = batch.TotalRecords()
	}
	if result == nil {
		return rpt
	}

	rpt.TotalViolations = result.TotalViolations()

	severityByRule := make(map[string]models.Severity)
	byRule := make(map[string][]models.Violation)
	for _, v := range result.Violations {
		rpt.CountsByRule[v.RuleName]++
		rpt.CountsBySeverity[v.Severity]++
		rpt.CountsByEntity[v.EntityType]++
		byRule[v.RuleName] = append(byRule[v.RuleName], v)
		if v.Severity.Rank() > severityByRule[v.RuleName].Rank() {
			severityByRule[v.RuleName] = v.Severity
		}
	}

	for entity, examined := range result.ExaminedCounts {
		summary := rpt.EntitySummaries[entity]
		summary.Examined = examined
		rpt.EntitySummaries[entity] = summary
	}
	for key := range result.FailedRecords {
		summary := rpt.EntitySummaries[key.Entity]
		summary.Failed++
		rpt.EntitySummaries[key.Entity] = summary
	}
	for key := range result.FlaggedRecords {
		summary := rpt.EntitySummaries[key.Entity]
		summary.Flagged++
		rpt.EntitySummaries[key.Entity] = summary
	}

	if remediated != nil {
		for _, d := range remediated.Dispositions {
			rpt.CountsByAction[d.Action]++
			summary := rpt.EntitySummaries[d.EntityType]
			switch d.Action {
			case models.ActionQuarantined:
				summary.Quarantined++
			case models.ActionAutoFixed:
				summary.AutoFixed++
			}
			rpt.EntitySummaries[d.EntityType] = summary

			// 清洁批次中仍带未消解违规的记录使整体状态降级为带警告
			if d.Action != models.ActionQuarantined && len(d.ViolationsRemaining) > 0 {
				rpt.Status = models.RunStatusSuccessWithWarnings
			}
		}
	}

	rpt.Samples = buildSamples(byRule, severityByRule, b.sampleLimit)
	return rpt
}

// buildSamples 每条规则抽样违规：组内按严重级别降序、实体顺序、记录ID升序
// 排序后截断到上限，规则段按规则名排序，保证报告确定性
func buildSamples(byRule map[string][]models.Violation, severityByRule map[string]models.Severity, limit int) []models.RuleSample {
	ruleNames := make([]string, 0, len(byRule))
	for name := range byRule {
		ruleNames = append(ruleNames, name)
	}
	sort.Strings(ruleNames)

	entityOrder := make(map[models.EntityType]int, len(models.EntityTypes))
	for i, entity := range models.EntityTypes {
		entityOrder[entity] = i
	}

	samples := make([]models.RuleSample, 0, len(ruleNames))
	for _, name := range ruleNames {
		violations := append([]models.Violation(nil), byRule[name]...)
		sort.SliceStable(violations, func(i, j int) bool {
			if violations[i].Severity.Rank() != violations[j].Severity.Rank() {
				return violations[i].Severity.Rank() > violations[j].Severity.Rank()
			}
			if entityOrder[violations[i].EntityType] != entityOrder[violations[j].EntityType] {
				return entityOrder[violations[i].EntityType] < entityOrder[violations[j].EntityType]
			}
			return violations[i].RecordID < violations[j].RecordID
		})

		total := len(violations)
		if len(violations) > limit {
			violations = violations[:limit]
		}
		samples = append(samples, models.RuleSample{
			RuleName:   name,
			Severity:   severityByRule[name],
			Total:      total,
			Violations: violations,
		})
	}
	return samples
}
