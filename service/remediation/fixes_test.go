/*
 * @module service/remediation/fixes_test
 * @description 自动修复函数测试：手机号归一、可选字段置空、评分收敛、余额重算、手续费收敛
 * @architecture 测试层
 * @dependencies testing, testify, shopspring/decimal, bankdq-service/testutil
 * @refs fixes.go
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

func TestFixPhoneStripsNonDigits(t *testing.T) {
	fixes := DefaultFixTable()
	c := testutil.MakeCustomer(1, func(c *models.Customer) {
		c.PhoneNumber = "091-234-5678"
	})

	fixed, applied, err := fixes[audit.RuleCustomerPhoneFormat](c)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, "0912345678", fixed.(models.Customer).PhoneNumber)
}

func TestFixPhoneGivesUpWhenStillInvalid(t *testing.T) {
	fixes := DefaultFixTable()
	c := testutil.MakeCustomer(1, func(c *models.Customer) {
		c.PhoneNumber = "+84-91-234-5678" // 去掉非数字后11位，仍不合法
	})

	fixed, applied, err := fixes[audit.RuleCustomerPhoneFormat](c)
	require.NoError(t, err)
	assert.False(t, applied, "修复后仍不合法时必须放弃")
	assert.Equal(t, c.PhoneNumber, fixed.(models.Customer).PhoneNumber)
}

func TestFixOptionalFieldsNullOut(t *testing.T) {
	fixes := DefaultFixTable()
	bad := "khong-hop-le"
	c := testutil.MakeCustomer(1, func(c *models.Customer) {
		c.Email = &bad
		c.TaxIdentificationNumber = &bad
	})

	fixed, applied, err := fixes[audit.RuleCustomerEmailFormat](c)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Nil(t, fixed.(models.Customer).Email)

	fixed, applied, err = fixes[audit.RuleCustomerTaxIDFormat](fixed)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Nil(t, fixed.(models.Customer).TaxIdentificationNumber)
}

func TestFixRiskScoreClampsAndRealignsRating(t *testing.T) {
	fixes := DefaultFixTable()
	c := testutil.MakeCustomer(1, func(c *models.Customer) {
		c.RiskScore = 150
		c.RiskRating = models.RiskRatingLow
	})

	fixed, applied, err := fixes[audit.RuleCustomerRiskScoreRange](c)
	require.NoError(t, err)
	require.True(t, applied)
	out := fixed.(models.Customer)
	assert.Equal(t, float64(100), out.RiskScore)
	assert.Equal(t, models.RiskRatingHigh, out.RiskRating, "评分收敛后风险等级同步重算")

	// 幂等：再次应用无变化
	_, applied, err = fixes[audit.RuleCustomerRiskScoreRange](out)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestFixBalanceIdentityRecomputes(t *testing.T) {
	fixes := DefaultFixTable()
	a := testutil.MakeAccount(testutil.MakeCustomer(1), 1, func(a *models.BankAccount) {
		a.CurrentBalance = decimal.NewFromInt(1)
	})

	fixed, applied, err := fixes[audit.RuleAccountBalanceIdentity](a)
	require.NoError(t, err)
	require.True(t, applied)
	out := fixed.(models.BankAccount)
	assert.True(t, out.CurrentBalance.Equal(out.AvailableBalance.Add(out.HoldAmount)))
}

func TestFixBalanceIdentityDefersToNegativeFix(t *testing.T) {
	fixes := DefaultFixTable()
	a := testutil.MakeAccount(testutil.MakeCustomer(1), 1, func(a *models.BankAccount) {
		a.AvailableBalance = decimal.NewFromInt(-100)
	})

	_, applied, err := fixes[audit.RuleAccountBalanceIdentity](a)
	require.NoError(t, err)
	assert.False(t, applied, "操作数为负时恒等式修复让位")

	fixed, applied, err := fixes[audit.RuleAccountBalanceNegative](a)
	require.NoError(t, err)
	require.True(t, applied)
	out := fixed.(models.BankAccount)
	assert.True(t, out.AvailableBalance.IsZero())
	assert.True(t, out.CurrentBalance.Equal(out.HoldAmount), "负值归零后恒等式同时恢复")
}

func TestFixFeeClampsIntoBound(t *testing.T) {
	fixes := DefaultFixTable()
	tx := testutil.MakeTransaction(testutil.MakeAccount(testutil.MakeCustomer(1), 1), 1, func(tx *models.Transaction) {
		tx.Amount = decimal.NewFromInt(1_000_000)
		tx.Fee = decimal.NewFromInt(500_000)
	})

	fixed, applied, err := fixes[audit.RuleTransactionFeeBound](tx)
	require.NoError(t, err)
	require.True(t, applied)
	assert.True(t, fixed.(models.Transaction).Fee.Equal(decimal.NewFromInt(100_000)), "超限手续费收敛到金额的10%")

	tx.Fee = decimal.NewFromInt(-10)
	fixed, applied, err = fixes[audit.RuleTransactionFeeBound](tx)
	require.NoError(t, err)
	require.True(t, applied)
	assert.True(t, fixed.(models.Transaction).Fee.IsZero(), "负手续费收敛到0")
}

func TestFixAttemptCount(t *testing.T) {
	fixes := DefaultFixTable()
	l := testutil.MakeAuthLog(testutil.MakeCustomer(1), 1, func(l *models.AuthenticationLog) {
		l.AttemptCount = 0
	})

	fixed, applied, err := fixes[audit.RuleAuthLogAttemptsMin](l)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, 1, fixed.(models.AuthenticationLog).AttemptCount)
}

func TestFixRejectsWrongRecordType(t *testing.T) {
	fixes := DefaultFixTable()
	_, _, err := fixes[audit.RuleCustomerPhoneFormat](testutil.MakeAuthLog(testutil.MakeCustomer(1), 1))
	assert.Error(t, err, "记录类型不匹配属于清洗故障")
}
