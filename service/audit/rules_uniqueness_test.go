/*
 * @module service/audit/rules_uniqueness_test
 * @description 唯一性规则测试：重复组全员报告、可选字段空值豁免、悬空外键不参与分组
 * @architecture 测试层
 * @dependencies testing, testify, bankdq-service/testutil
 * @refs rules_uniqueness.go, index.go
 */

package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdq-service/service/models"
	"bankdq-service/testutil"
)

func TestDuplicatePhoneReportsAllMembers(t *testing.T) {
	batch := testutil.NewCleanBatch(3)
	batch.Customers[1].PhoneNumber = batch.Customers[0].PhoneNumber

	result := auditBatch(batch)
	violations := violationsFor(result, RuleCustomerPhoneUnique)

	require.Len(t, violations, 2, "重复组的每个成员都必须被报告")
	ids := []string{violations[0].RecordID, violations[1].RecordID}
	assert.Contains(t, ids, batch.Customers[0].CustomerID)
	assert.Contains(t, ids, batch.Customers[1].CustomerID)
	for _, v := range violations {
		assert.Equal(t, models.SeverityCritical, v.Severity)
		assert.Equal(t, batch.Customers[0].PhoneNumber, v.ObservedValue)
	}
}

func TestNilOptionalFieldsAreExemptFromUniqueness(t *testing.T) {
	batch := testutil.NewCleanBatch(3)
	// 多个客户email与税号同时为空不算重复
	batch.Customers[0].Email = nil
	batch.Customers[1].Email = nil
	batch.Customers[0].TaxIdentificationNumber = nil
	batch.Customers[1].TaxIdentificationNumber = nil

	result := auditBatch(batch)

	assert.Empty(t, violationsFor(result, RuleCustomerEmailUnique))
	assert.Empty(t, violationsFor(result, RuleCustomerTaxIDUnique))
}

func TestDuplicateAccountNumberAndDeviceIdentifier(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	batch.BankAccounts[1].AccountNumber = batch.BankAccounts[0].AccountNumber
	batch.CustomerDevices[1].DeviceIdentifier = batch.CustomerDevices[0].DeviceIdentifier
	// 日志引用保持可解析
	batch.AuthenticationLogs[1].DeviceIdentifier = &batch.CustomerDevices[0].DeviceIdentifier

	result := auditBatch(batch)

	assert.Len(t, violationsFor(result, RuleAccountNumberUnique), 2)
	assert.Len(t, violationsFor(result, RuleDeviceIdentifierUnique), 2)
}

func TestDuplicatePrimaryIDsReported(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	batch.Transactions[1].TransactionID = batch.Transactions[0].TransactionID
	batch.AuthenticationLogs[1].LogID = batch.AuthenticationLogs[0].LogID
	// 日志的交易引用保持可解析
	batch.AuthenticationLogs[1].TransactionID = &batch.Transactions[0].TransactionID

	result := auditBatch(batch)

	assert.Len(t, violationsFor(result, RuleTransactionIDUnique), 2)
	assert.Len(t, violationsFor(result, RuleAuthLogIDUnique), 2)
}

func TestFaceTemplateDuplicateCustomer(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	batch.FaceTemplates[1].CustomerID = batch.FaceTemplates[0].CustomerID

	result := auditBatch(batch)
	assert.Len(t, violationsFor(result, RuleFaceTemplateCustomerUnique), 2)
}

func TestDanglingFaceTemplateExcludedFromUniqueGroup(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	// 悬空模板指向相同的客户ID，但客户不存在：只报引用违规，不报重复
	orphan1 := testutil.MakeFaceTemplate(models.Customer{CustomerID: "missing-cus"}, 101)
	orphan2 := testutil.MakeFaceTemplate(models.Customer{CustomerID: "missing-cus"}, 102)
	batch.FaceTemplates = append(batch.FaceTemplates, orphan1, orphan2)

	result := auditBatch(batch)

	assert.Empty(t, violationsFor(result, RuleFaceTemplateCustomerUnique), "客户不存在的模板不参与唯一性分组")
	assert.Len(t, violationsFor(result, RuleFaceTemplateCustomerExists), 2)
}

func TestCanonicalMemberPrefersEarliestCreation(t *testing.T) {
	members := []GroupMember{
		{RecordID: "b", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{RecordID: "a", CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	canonical, ok := CanonicalMember(members)
	require.True(t, ok)
	assert.Equal(t, "b", canonical.RecordID, "创建时间最早者保留")
}

func TestCanonicalMemberBreaksTimeTiesByID(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	// 创建时间相同，按记录ID裁决
	batch.Customers[1].CreatedAt = batch.Customers[0].CreatedAt
	batch.Customers[1].PhoneNumber = batch.Customers[0].PhoneNumber

	idx := NewBatchIndex(batch)
	members := idx.UniqueGroup(UniqueCustomerPhone, batch.Customers[0].PhoneNumber)
	require.Len(t, members, 2)

	canonical, ok := CanonicalMember(members)
	require.True(t, ok)
	assert.Equal(t, "cus-0001", canonical.RecordID, "时间并列时记录ID最小者保留")
}
