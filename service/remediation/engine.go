/*
 * @module service/remediation/engine
 * @description 清洗引擎：依据审计结果对批次逐记录处置（隔离/自动修复/标记），重复组按创建时间裁决保留者，隔离后沿外键依赖级联移除
 * @architecture 分层架构 - 清洗服务层
 * @documentReference ai_docs/banking_dq_remediation.md
 * @stateFlow 审计结果 -> 按实体顺序逐记录分类违规 -> 隔离/修复/标记 -> 级联移除孤儿 -> 产出清洁批次与隔离批次
 * @rules 处置优先级 隔离 > 自动修复 > 标记；清洁批次再审计不得出现Critical/High违规；对清洁批次重复清洗零改动
 * @dependencies bankdq-service/service/audit, bankdq-service/service/models
 * @refs service/pipeline
 */

package remediation

import (
	"fmt"
	"log/slog"

	"bankdq-service/service/audit"
	"bankdq-service/service/models"
)

// Engine 清洗引擎，持有修复函数表和规则目录（修复后复检用）
type Engine struct {
	fixes   map[string]FixFunc
	catalog *audit.Catalog
}

// NewEngine 创建清洗引擎，使用内置修复表和内置规则目录
func NewEngine() *Engine {
	return &Engine{fixes: DefaultFixTable(), catalog: audit.DefaultCatalog()}
}

// removedSets 已隔离记录的父键集合，供级联判断
type removedSets struct {
	customers         map[string]bool
	accounts          map[string]bool
	transactions      map[string]bool
	deviceIdentifiers map[string]bool

	// 处置后仍存活的设备标识。标识是自然键，重复组中保留者存活时
	// 该标识对下游仍可解析，不触发级联
	keptDevices map[string]bool
}

func newRemovedSets() *removedSets {
	return &removedSets{
		customers:         make(map[string]bool),
		accounts:          make(map[string]bool),
		transactions:      make(map[string]bool),
		deviceIdentifiers: make(map[string]bool),
		keptDevices:       make(map[string]bool),
	}
}

// register 记录被隔离后登记其可被下游引用的键
func (r *removedSets) register(rec models.Record) {
	switch v := rec.(type) {
	case models.Customer:
		r.customers[v.CustomerID] = true
	case models.BankAccount:
		r.accounts[v.AccountID] = true
	case models.Transaction:
		r.transactions[v.TransactionID] = true
	case models.CustomerDevice:
		r.deviceIdentifiers[v.DeviceIdentifier] = true
	}
}

// keepDevice 设备处置完成且未被隔离时登记其标识
func (r *removedSets) keepDevice(identifier string) {
	r.keptDevices[identifier] = true
}

// cascadeViolation 记录的上游是否已被隔离，是则返回合成的级联违规
func (r *removedSets) cascadeViolation(rec models.Record) *models.Violation {
	synthetic := func(field, value string) *models.Violation {
		return &models.Violation{
			RuleName:      audit.RuleReferentialCascade,
			Severity:      models.SeverityCritical,
			EntityType:    rec.EntityKind(),
			RecordID:      rec.RecordID(),
			Fields:        []string{field},
			Message:       "引用的上游记录已被隔离，级联隔离",
			ObservedValue: value,
		}
	}

	switch v := rec.(type) {
	case models.FaceTemplate:
		if r.customers[v.CustomerID] {
			return synthetic("customer_id", v.CustomerID)
		}
	case models.BankAccount:
		if r.customers[v.CustomerID] {
			return synthetic("customer_id", v.CustomerID)
		}
	case models.CustomerDevice:
		if r.customers[v.CustomerID] {
			return synthetic("customer_id", v.CustomerID)
		}
	case models.Transaction:
		if r.accounts[v.AccountID] {
			return synthetic("account_id", v.AccountID)
		}
	case models.AuthenticationLog:
		if r.customers[v.CustomerID] {
			return synthetic("customer_id", v.CustomerID)
		}
		if v.DeviceIdentifier != nil && r.deviceIdentifiers[*v.DeviceIdentifier] && !r.keptDevices[*v.DeviceIdentifier] {
			return synthetic("device_identifier", *v.DeviceIdentifier)
		}
		if v.TransactionID != nil && r.transactions[*v.TransactionID] {
			return synthetic("transaction_id", *v.TransactionID)
		}
	}
	return nil
}

// Remediate 对批次执行清洗。原批次保持只读，所有修改发生在副本上。
// 处理顺序与审计一致：实体按依赖顺序（父在前）、记录按集合内顺序，
// 因此级联判断时上游记录的处置总是已经完成
func (e *Engine) Remediate(batch *models.Batch, result *models.AuditResult) (res *models.RemediationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("清洗引擎内部异常: %v", r)
		}
	}()

	idx := audit.NewBatchIndex(batch)
	working := batch.Clone()
	rejects := models.NewBatch()

	quarantined := make(map[models.RecordKey]bool)
	removed := newRemovedSets()
	var dispositions []models.Disposition

	quarantine := func(rec models.Record, remaining []models.Violation) {
		key := models.RecordKey{Entity: rec.EntityKind(), ID: rec.RecordID()}
		quarantined[key] = true
		removed.register(rec)
		appendToBatch(rejects, rec)
		dispositions = append(dispositions, models.Disposition{
			RecordID:            rec.RecordID(),
			EntityType:          rec.EntityKind(),
			Action:              models.ActionQuarantined,
			ViolationsRemaining: remaining,
		})
	}

	for _, entity := range models.EntityTypes {
		for _, rec := range batch.Records(entity) {
			key := models.RecordKey{Entity: entity, ID: rec.RecordID()}
			violations := result.ByRecord[key]

			if cascade := removed.cascadeViolation(rec); cascade != nil {
				remaining := append(append([]models.Violation{}, violations...), *cascade)
				quarantine(rec, remaining)
			} else if len(violations) > 0 {
				disposition := e.disposeRecord(rec, violations, idx, working, quarantine)
				if disposition != nil {
					dispositions = append(dispositions, *disposition)
				}
			}

			// 设备处置完毕即登记存活标识，后续实体的级联判断依赖完整的存活集合
			if d, ok := rec.(models.CustomerDevice); ok && !quarantined[key] {
				removed.keepDevice(d.DeviceIdentifier)
			}
		}
	}

	cleaned := filterBatch(working, quarantined)

	return &models.RemediationResult{
		CleanedBatch: cleaned,
		Quarantined:  rejects,
		Dispositions: dispositions,
	}, nil
}

// disposeRecord 对携带违规的单条记录做处置决定。
// 隔离走quarantine回调并返回nil，否则返回修复/标记处置
func (e *Engine) disposeRecord(
	rec models.Record,
	violations []models.Violation,
	idx *audit.BatchIndex,
	working *models.Batch,
	quarantine func(models.Record, []models.Violation),
) *models.Disposition {
	var resolvedTie, blocking, passive, fixable []models.Violation

	for _, v := range violations {
		if v.Severity == models.SeverityCritical {
			// 重复组裁决：保留者（创建时间最早，同时刻ID最小）的
			// 唯一性违规视为由其余成员的隔离所消解
			if groupKey, ok := audit.UniqueKeyForRule(v.RuleName); ok {
				members := idx.UniqueGroup(groupKey, v.ObservedValue)
				if canonical, found := audit.CanonicalMember(members); found && canonical.RecordID == rec.RecordID() {
					resolvedTie = append(resolvedTie, v)
					continue
				}
			}
			blocking = append(blocking, v)
			continue
		}
		if _, hasFix := e.fixes[v.RuleName]; hasFix {
			fixable = append(fixable, v)
			continue
		}
		if v.Severity == models.SeverityHigh {
			blocking = append(blocking, v)
			continue
		}
		passive = append(passive, v)
	}

	if len(blocking) > 0 {
		quarantine(rec, violations)
		return nil
	}

	// 按违规出现顺序依次应用修复，后一个修复作用在前一个的结果上
	current := rec
	var applied []models.Violation
	for _, v := range fixable {
		next, ok, fixErr := e.fixes[v.RuleName](current)
		if fixErr != nil {
			slog.Warn("自动修复失败，记录转入隔离",
				"rule", v.RuleName,
				"entity", string(rec.EntityKind()),
				"record_id", rec.RecordID(),
				"error", fixErr.Error())
			quarantine(rec, violations)
			return nil
		}
		if !ok {
			// 修复未生效：High级违规仍然阻断，其余降级为标记
			if v.Severity == models.SeverityHigh {
				quarantine(rec, violations)
				return nil
			}
			passive = append(passive, v)
			continue
		}
		current = next
		applied = append(applied, v)
	}

	// 已生效的修复可能连带满足其余轻度违规（如负余额归零后恒等式随之成立），
	// 用修复后的记录复检，不再复现的违规转入已消解
	if len(applied) > 0 && len(passive) > 0 {
		var still []models.Violation
		for _, v := range passive {
			if rule, ok := e.catalog.RuleByName(v.RuleName); ok && len(rule.Check(current, idx)) == 0 {
				applied = append(applied, v)
				continue
			}
			still = append(still, v)
		}
		passive = still
	}

	if len(applied) > 0 {
		working.Replace(current)
		return &models.Disposition{
			RecordID:            rec.RecordID(),
			EntityType:          rec.EntityKind(),
			Action:              models.ActionAutoFixed,
			ViolationsResolved:  append(resolvedTie, applied...),
			ViolationsRemaining: passive,
		}
	}

	if len(passive) > 0 {
		return &models.Disposition{
			RecordID:            rec.RecordID(),
			EntityType:          rec.EntityKind(),
			Action:              models.ActionFlagged,
			ViolationsResolved:  resolvedTie,
			ViolationsRemaining: passive,
		}
	}

	if len(resolvedTie) > 0 {
		// 重复组保留者：数据本身不变，违规随其余成员的隔离而消解
		return &models.Disposition{
			RecordID:           rec.RecordID(),
			EntityType:         rec.EntityKind(),
			Action:             models.ActionAutoFixed,
			ViolationsResolved: resolvedTie,
		}
	}

	return nil
}

// appendToBatch 将原始记录（未经修复）追加到隔离批次
func appendToBatch(b *models.Batch, rec models.Record) {
	switch v := rec.(type) {
	case models.Customer:
		b.Customers = append(b.Customers, v)
	case models.FaceTemplate:
		b.FaceTemplates = append(b.FaceTemplates, v)
	case models.BankAccount:
		b.BankAccounts = append(b.BankAccounts, v)
	case models.CustomerDevice:
		b.CustomerDevices = append(b.CustomerDevices, v)
	case models.Transaction:
		b.Transactions = append(b.Transactions, v)
	case models.AuthenticationLog:
		b.AuthenticationLogs = append(b.AuthenticationLogs, v)
	}
}

// filterBatch 从工作批次中剔除已隔离的记录，得到清洁批次
func filterBatch(working *models.Batch, quarantined map[models.RecordKey]bool) *models.Batch {
	cleaned := models.NewBatch()
	for _, r := range working.Customers {
		if !quarantined[models.RecordKey{Entity: models.EntityCustomer, ID: r.CustomerID}] {
			cleaned.Customers = append(cleaned.Customers, r)
		}
	}
	for _, r := range working.FaceTemplates {
		if !quarantined[models.RecordKey{Entity: models.EntityFaceTemplate, ID: r.TemplateID}] {
			cleaned.FaceTemplates = append(cleaned.FaceTemplates, r)
		}
	}
	for _, r := range working.BankAccounts {
		if !quarantined[models.RecordKey{Entity: models.EntityBankAccount, ID: r.AccountID}] {
			cleaned.BankAccounts = append(cleaned.BankAccounts, r)
		}
	}
	for _, r := range working.CustomerDevices {
		if !quarantined[models.RecordKey{Entity: models.EntityCustomerDevice, ID: r.DeviceID}] {
			cleaned.CustomerDevices = append(cleaned.CustomerDevices, r)
		}
	}
	for _, r := range working.Transactions {
		if !quarantined[models.RecordKey{Entity: models.EntityTransaction, ID: r.TransactionID}] {
			cleaned.Transactions = append(cleaned.Transactions, r)
		}
	}
	for _, r := range working.AuthenticationLogs {
		if !quarantined[models.RecordKey{Entity: models.EntityAuthenticationLog, ID: r.LogID}] {
			cleaned.AuthenticationLogs = append(cleaned.AuthenticationLogs, r)
		}
	}
	return cleaned
}
