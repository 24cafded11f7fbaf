/*
 * @module service/audit/rules_format_test
 * @description 格式规则测试：越南证件/手机号/邮箱/税号/账号/设备标识格式和枚举取值
 * @architecture 测试层
 * @dependencies testing, testify, bankdq-service/testutil
 * @refs rules_format.go
 */

package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdq-service/service/models"
	"bankdq-service/testutil"
)

func TestPhoneFormat(t *testing.T) {
	testCases := []struct {
		name  string
		phone string
		valid bool
	}{
		{"合法09前缀", "0912345678", true},
		{"合法03前缀", "0387654321", true},
		{"非法前缀", "0212345678", false},
		{"长度不足", "091234567", false},
		{"带分隔符", "091-234-5678", false},
		{"带国家码", "+84912345678", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, IsValidPhone(tc.phone))
		})
	}
}

func TestIDPassportFormat(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		valid bool
	}{
		{"合法CCCD", "079012345678", true},
		{"合法护照", "B1234567", true},
		{"CCCD位数不足", "07901234567", false},
		{"护照小写字母", "b1234567", false},
		{"护照数字位数不足", "B123456", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, IsValidIDPassport(tc.value))
		})
	}
}

func TestEmailAndTaxIDFormatViolations(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	badEmail := "khong-hop-le"
	badTax := "12345"
	batch.Customers[0].Email = &badEmail
	batch.Customers[1].TaxIdentificationNumber = &badTax

	result := auditBatch(batch)

	emailViolations := violationsFor(result, RuleCustomerEmailFormat)
	assert.Len(t, emailViolations, 1)
	assert.Equal(t, models.SeverityMedium, emailViolations[0].Severity)
	assert.Len(t, violationsFor(result, RuleCustomerTaxIDFormat), 1)
}

func TestAccountNumberFormatViolation(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.BankAccounts[0].AccountNumber = "123456789012345678"

	result := auditBatch(batch)
	violations := violationsFor(result, RuleAccountNumberFormat)
	assert.Len(t, violations, 1)
	assert.Equal(t, models.SeverityHigh, violations[0].Severity)
}

func TestDeviceIdentifierFormatViolation(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.CustomerDevices[0].DeviceIdentifier = "SERIAL:ABC123"
	batch.AuthenticationLogs[0].DeviceIdentifier = &batch.CustomerDevices[0].DeviceIdentifier

	result := auditBatch(batch)
	violations := violationsFor(result, RuleDeviceIdentifierFormat)
	assert.Len(t, violations, 1)
	assert.Equal(t, models.SeverityHigh, violations[0].Severity, "设备标识格式违规不可修复，将导致隔离")
}

func TestRequiredFieldsViolations(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.Customers[0].FullName = ""
	batch.Customers[0].Status = ""

	result := auditBatch(batch)
	violations := violationsFor(result, RuleCustomerRequiredFields)
	assert.Len(t, violations, 1)
	assert.ElementsMatch(t, []string{"full_name", "status"}, violations[0].Fields)
	// 状态为空时不再触发枚举规则
	assert.Empty(t, violationsFor(result, RuleCustomerStatusValid))
}

func TestMissingResidentialAddressReported(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.Customers[0].ResidentialAddress = ""

	result := auditBatch(batch)
	violations := violationsFor(result, RuleCustomerRequiredFields)
	require.Len(t, violations, 1)
	assert.Equal(t, []string{"residential_address"}, violations[0].Fields)
	assert.Equal(t, models.SeverityHigh, violations[0].Severity)
}

func TestEnumViolations(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.Customers[0].Status = "Deleted"
	batch.BankAccounts[0].AccountType = "Crypto"
	batch.BankAccounts[0].Currency = "BTC"
	batch.CustomerDevices[0].DeviceType = "Watch"
	batch.AuthenticationLogs[0].Status = "Unknown"

	result := auditBatch(batch)

	assert.Len(t, violationsFor(result, RuleCustomerStatusValid), 1)
	assert.Len(t, violationsFor(result, RuleAccountTypeValid), 1)
	assert.Len(t, violationsFor(result, RuleAccountCurrencyValid), 1)
	assert.Len(t, violationsFor(result, RuleDeviceTypeValid), 1)
	assert.Len(t, violationsFor(result, RuleAuthLogStatusValid), 1)
}
