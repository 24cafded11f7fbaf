/*
 * @module service/remediation/engine_test
 * @description 清洗引擎测试：处置优先级、重复组裁决、级联隔离、幂等性和清洁批次收敛
 * @architecture 测试层
 * @stateFlow 审计 -> 清洗 -> 再审计验证清洁批次 -> 再清洗验证幂等
 * @dependencies testing, testify, bankdq-service/service/audit, bankdq-service/testutil
 * @refs engine.go
 */

package remediation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdq-service/service/audit"
	"bankdq-service/service/models"
	"bankdq-service/testutil"
)

// runPipeline 审计后清洗
func runPipeline(t *testing.T, batch *models.Batch) (*models.AuditResult, *models.RemediationResult) {
	t.Helper()
	result := audit.NewEngine(audit.DefaultCatalog()).Audit(batch)
	remediated, err := NewEngine().Remediate(batch, result)
	require.NoError(t, err)
	return result, remediated
}

// dispositionFor 查找指定记录的处置
func dispositionFor(res *models.RemediationResult, entity models.EntityType, id string) *models.Disposition {
	for i := range res.Dispositions {
		if res.Dispositions[i].EntityType == entity && res.Dispositions[i].RecordID == id {
			return &res.Dispositions[i]
		}
	}
	return nil
}

func TestCleanBatchPassesThroughUntouched(t *testing.T) {
	batch := testutil.NewCleanBatch(3)
	_, remediated := runPipeline(t, batch)

	assert.Equal(t, batch.TotalRecords(), remediated.CleanedBatch.TotalRecords())
	assert.Zero(t, remediated.Quarantined.TotalRecords())
	assert.Empty(t, remediated.Dispositions)
}

func TestDuplicatePhoneKeepsEarliestQuarantinesRest(t *testing.T) {
	batch := testutil.NewCleanBatch(3)
	// 客户2复制客户1的手机号；客户1创建更早
	batch.Customers[1].PhoneNumber = batch.Customers[0].PhoneNumber

	_, remediated := runPipeline(t, batch)

	survivor := dispositionFor(remediated, models.EntityCustomer, batch.Customers[0].CustomerID)
	require.NotNil(t, survivor)
	assert.Equal(t, models.ActionAutoFixed, survivor.Action, "保留者的唯一性违规随其余成员隔离而消解")
	assert.NotEmpty(t, survivor.ViolationsResolved)

	evicted := dispositionFor(remediated, models.EntityCustomer, batch.Customers[1].CustomerID)
	require.NotNil(t, evicted)
	assert.Equal(t, models.ActionQuarantined, evicted.Action)

	// 清洁批次只剩保留者，被隔离者进入隔离批次
	assert.Len(t, remediated.CleanedBatch.Customers, 2)
	require.Len(t, remediated.Quarantined.Customers, 1)
	assert.Equal(t, batch.Customers[1].CustomerID, remediated.Quarantined.Customers[0].CustomerID)
}

func TestQuarantineCascadesToDependents(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	// 客户1被隔离（证件格式非法且不可修复）
	batch.Customers[0].IDPassportNumber = "INVALID"

	_, remediated := runPipeline(t, batch)

	customerID := batch.Customers[0].CustomerID
	require.Equal(t, models.ActionQuarantined,
		dispositionFor(remediated, models.EntityCustomer, customerID).Action)

	// 人脸模板、账户、设备、交易、认证日志全部级联隔离
	for _, check := range []struct {
		entity models.EntityType
		id     string
	}{
		{models.EntityFaceTemplate, batch.FaceTemplates[0].TemplateID},
		{models.EntityBankAccount, batch.BankAccounts[0].AccountID},
		{models.EntityCustomerDevice, batch.CustomerDevices[0].DeviceID},
		{models.EntityTransaction, batch.Transactions[0].TransactionID},
		{models.EntityAuthenticationLog, batch.AuthenticationLogs[0].LogID},
	} {
		d := dispositionFor(remediated, check.entity, check.id)
		require.NotNil(t, d, "实体 %s 记录 %s 应被级联隔离", check.entity, check.id)
		assert.Equal(t, models.ActionQuarantined, d.Action)

		hasCascade := false
		for _, v := range d.ViolationsRemaining {
			if v.RuleName == audit.RuleReferentialCascade {
				hasCascade = true
			}
		}
		assert.True(t, hasCascade, "级联隔离必须携带合成违规")
	}

	// 客户2的记录不受影响
	assert.Len(t, remediated.CleanedBatch.Customers, 1)
	assert.Len(t, remediated.CleanedBatch.Transactions, 1)
}

func TestBadDeviceIdentifierQuarantinesDeviceAndItsLogs(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	badIdentifier := "SERIAL:XYZ"
	batch.CustomerDevices[0].DeviceIdentifier = badIdentifier
	batch.AuthenticationLogs[0].DeviceIdentifier = &badIdentifier

	_, remediated := runPipeline(t, batch)

	device := dispositionFor(remediated, models.EntityCustomerDevice, batch.CustomerDevices[0].DeviceID)
	require.NotNil(t, device)
	assert.Equal(t, models.ActionQuarantined, device.Action, "设备标识格式违规不可修复")

	log := dispositionFor(remediated, models.EntityAuthenticationLog, batch.AuthenticationLogs[0].LogID)
	require.NotNil(t, log)
	assert.Equal(t, models.ActionQuarantined, log.Action, "引用被隔离设备的日志级联隔离")
}

func TestDuplicateDeviceIdentifierKeepsSurvivorLogsAlive(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	// 设备2复制设备1的标识，两条日志都引用该标识
	batch.CustomerDevices[1].DeviceIdentifier = batch.CustomerDevices[0].DeviceIdentifier
	batch.AuthenticationLogs[1].DeviceIdentifier = &batch.CustomerDevices[0].DeviceIdentifier

	_, remediated := runPipeline(t, batch)

	survivor := dispositionFor(remediated, models.EntityCustomerDevice, batch.CustomerDevices[0].DeviceID)
	require.NotNil(t, survivor)
	assert.Equal(t, models.ActionAutoFixed, survivor.Action)

	evicted := dispositionFor(remediated, models.EntityCustomerDevice, batch.CustomerDevices[1].DeviceID)
	require.NotNil(t, evicted)
	assert.Equal(t, models.ActionQuarantined, evicted.Action)

	// 保留者存活，标识对下游仍可解析，日志不得级联隔离
	assert.Len(t, remediated.CleanedBatch.AuthenticationLogs, 2)
	for _, log := range batch.AuthenticationLogs {
		assert.Nil(t, dispositionFor(remediated, models.EntityAuthenticationLog, log.LogID),
			"引用存活标识的日志不应有处置")
	}
}

func TestDuplicateTransactionIDQuarantinesWholeGroup(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	batch.Transactions[1].TransactionID = batch.Transactions[0].TransactionID
	batch.AuthenticationLogs[1].TransactionID = &batch.Transactions[0].TransactionID

	_, remediated := runPipeline(t, batch)

	// 主键重复无法裁决保留者，重复组整组隔离
	assert.Empty(t, remediated.CleanedBatch.Transactions)
	assert.Len(t, remediated.Quarantined.Transactions, 2)

	// 引用该交易的日志级联隔离
	for _, log := range batch.AuthenticationLogs {
		d := dispositionFor(remediated, models.EntityAuthenticationLog, log.LogID)
		require.NotNil(t, d)
		assert.Equal(t, models.ActionQuarantined, d.Action)
	}
}

func TestOrphanAuthLogQuarantined(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	orphan := "txn-missing"
	batch.AuthenticationLogs[0].TransactionID = &orphan

	_, remediated := runPipeline(t, batch)

	d := dispositionFor(remediated, models.EntityAuthenticationLog, batch.AuthenticationLogs[0].LogID)
	require.NotNil(t, d)
	assert.Equal(t, models.ActionQuarantined, d.Action)
	// 其余记录不受影响
	assert.Len(t, remediated.CleanedBatch.Customers, 1)
	assert.Len(t, remediated.CleanedBatch.Transactions, 1)
}

func TestAutoFixAppliedToCleanedBatch(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.Customers[0].PhoneNumber = "091-234-0001"
	batch.BankAccounts[0].CurrentBalance = decimal.NewFromInt(1)

	_, remediated := runPipeline(t, batch)

	customer := dispositionFor(remediated, models.EntityCustomer, batch.Customers[0].CustomerID)
	require.NotNil(t, customer)
	assert.Equal(t, models.ActionAutoFixed, customer.Action)
	assert.Equal(t, "0912340001", remediated.CleanedBatch.Customers[0].PhoneNumber)

	account := dispositionFor(remediated, models.EntityBankAccount, batch.BankAccounts[0].AccountID)
	require.NotNil(t, account)
	assert.Equal(t, models.ActionAutoFixed, account.Action)
	fixed := remediated.CleanedBatch.BankAccounts[0]
	assert.True(t, fixed.CurrentBalance.Equal(fixed.AvailableBalance.Add(fixed.HoldAmount)))

	// 原批次保持不变
	assert.Equal(t, "091-234-0001", batch.Customers[0].PhoneNumber)
}

func TestNegativeBalanceFixResolvesIdentityViolation(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	// 负值与恒等式同时破坏：恒等式修复因负操作数让行，负值归零后恒等式随之成立
	batch.BankAccounts[0].AvailableBalance = decimal.NewFromInt(-100)
	batch.BankAccounts[0].CurrentBalance = decimal.NewFromInt(999)

	_, remediated := runPipeline(t, batch)

	d := dispositionFor(remediated, models.EntityBankAccount, batch.BankAccounts[0].AccountID)
	require.NotNil(t, d)
	assert.Equal(t, models.ActionAutoFixed, d.Action)
	assert.Empty(t, d.ViolationsRemaining, "修复后复检通过的违规不得残留")
	assert.Len(t, d.ViolationsResolved, 2)

	fixed := remediated.CleanedBatch.BankAccounts[0]
	assert.True(t, fixed.AvailableBalance.IsZero())
	assert.True(t, fixed.CurrentBalance.Equal(fixed.AvailableBalance.Add(fixed.HoldAmount)))
}

func TestUnfixablePhoneQuarantines(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.Customers[0].PhoneNumber = "+84-91-234-5678"

	_, remediated := runPipeline(t, batch)

	d := dispositionFor(remediated, models.EntityCustomer, batch.Customers[0].CustomerID)
	require.NotNil(t, d)
	assert.Equal(t, models.ActionQuarantined, d.Action, "修复失败的High级违规必须隔离")
}

func TestQuarantineTakesPrecedenceOverFix(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	// 同一客户同时有可修复违规和Critical违规
	batch.Customers[0].RiskScore = 150
	batch.FaceTemplates = append(batch.FaceTemplates,
		testutil.MakeFaceTemplate(batch.Customers[0], 99))

	_, remediated := runPipeline(t, batch)

	// 人脸模板重复：后创建的模板隔离；客户本身只有可修复违规，照常修复
	d := dispositionFor(remediated, models.EntityCustomer, batch.Customers[0].CustomerID)
	require.NotNil(t, d)
	assert.Equal(t, models.ActionAutoFixed, d.Action)

	later := dispositionFor(remediated, models.EntityFaceTemplate, "tpl-0099")
	require.NotNil(t, later)
	assert.Equal(t, models.ActionQuarantined, later.Action,
		"Critical违规存在时即使有可修复违规也必须隔离")
}

func TestFlaggedRecordStaysInCleanedBatch(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.CustomerDevices[0].IsTrusted = false // Medium级，无修复

	_, remediated := runPipeline(t, batch)

	d := dispositionFor(remediated, models.EntityCustomerDevice, batch.CustomerDevices[0].DeviceID)
	require.NotNil(t, d)
	assert.Equal(t, models.ActionFlagged, d.Action)
	assert.NotEmpty(t, d.ViolationsRemaining)
	assert.Len(t, remediated.CleanedBatch.CustomerDevices, 1, "标记记录保留在清洁批次中")
}

func TestCleanedBatchHasNoBlockingViolations(t *testing.T) {
	batch := testutil.NewCleanBatch(5)
	batch.Customers[0].PhoneNumber = batch.Customers[1].PhoneNumber
	batch.Customers[2].PhoneNumber = "091-234-9999"
	batch.Customers[3].RiskScore = -10
	batch.BankAccounts[1].CurrentBalance = decimal.NewFromInt(7)
	batch.BankAccounts[2].AvailableBalance = decimal.NewFromInt(-50)
	batch.CustomerDevices[4].DeviceIdentifier = "BAD"
	batch.Transactions[3].Fee = batch.Transactions[3].Amount

	_, remediated := runPipeline(t, batch)

	// 清洁批次再审计不得有Critical/High违规
	recheck := audit.NewEngine(audit.DefaultCatalog()).Audit(remediated.CleanedBatch)
	assert.False(t, recheck.HasBlocking(),
		"清洁批次再审计不得出现阻断级违规: %+v", recheck.Violations)
}

func TestRemediationIsIdempotent(t *testing.T) {
	batch := testutil.NewCleanBatch(4)
	batch.Customers[0].PhoneNumber = batch.Customers[1].PhoneNumber
	batch.Customers[2].RiskScore = 200
	batch.BankAccounts[3].CurrentBalance = decimal.NewFromInt(3)

	_, first := runPipeline(t, batch)

	// 对清洁批次再跑一轮：零隔离零修复
	_, second := runPipeline(t, first.CleanedBatch)

	counts := second.ActionCounts()
	assert.Zero(t, counts[models.ActionQuarantined], "第二轮不得再隔离")
	assert.Zero(t, counts[models.ActionAutoFixed], "第二轮不得再修复")
	assert.Equal(t, first.CleanedBatch.TotalRecords(), second.CleanedBatch.TotalRecords())
}
