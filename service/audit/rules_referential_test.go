/*
 * @module service/audit/rules_referential_test
 * @description 引用完整性规则测试：七条外键关系的悬空检测和可选引用豁免
 * @architecture 测试层
 * @dependencies testing, testify, bankdq-service/testutil
 * @refs rules_referential.go
 */

package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdq-service/service/models"
	"bankdq-service/testutil"
)

func TestDanglingForeignKeysAreCritical(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.FaceTemplates[0].CustomerID = "missing"
	batch.BankAccounts[0].CustomerID = "missing"
	batch.CustomerDevices[0].CustomerID = "missing"
	batch.Transactions[0].AccountID = "missing"

	result := auditBatch(batch)

	for _, rule := range []string{
		RuleFaceTemplateCustomerExists,
		RuleAccountCustomerExists,
		RuleDeviceCustomerExists,
		RuleTransactionAccountExists,
	} {
		violations := violationsFor(result, rule)
		require.Len(t, violations, 1, "规则 %s 应报告悬空引用", rule)
		assert.Equal(t, models.SeverityCritical, violations[0].Severity)
	}
}

func TestAuthLogDanglingReferences(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	missingDevice := "IMEI:999999999999999"
	missingTxn := "txn-missing"
	batch.AuthenticationLogs[0].CustomerID = "missing"
	batch.AuthenticationLogs[0].DeviceIdentifier = &missingDevice
	batch.AuthenticationLogs[0].TransactionID = &missingTxn

	result := auditBatch(batch)

	assert.Len(t, violationsFor(result, RuleAuthLogCustomerExists), 1)
	assert.Len(t, violationsFor(result, RuleAuthLogDeviceExists), 1)
	assert.Len(t, violationsFor(result, RuleAuthLogTransactionExists), 1)
}

func TestAuthLogOptionalReferencesAreExemptWhenNil(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.AuthenticationLogs[0].DeviceIdentifier = nil
	batch.AuthenticationLogs[0].TransactionID = nil

	result := auditBatch(batch)

	assert.Empty(t, violationsFor(result, RuleAuthLogDeviceExists), "可选引用为空时豁免")
	assert.Empty(t, violationsFor(result, RuleAuthLogTransactionExists))
}

func TestAuthLogDeviceResolvedByIdentifierNotPrimaryKey(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	// 用设备主键而非设备标识引用，应视为悬空
	batch.AuthenticationLogs[0].DeviceIdentifier = &batch.CustomerDevices[0].DeviceID

	result := auditBatch(batch)
	assert.Len(t, violationsFor(result, RuleAuthLogDeviceExists), 1, "设备关联必须按device_identifier解析")
}
