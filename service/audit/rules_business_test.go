/*
 * @module service/audit/rules_business_test
 * @description 业务规则测试：风险一致性、余额恒等式、交易形态表、强认证门槛、可疑设备
 * @architecture 测试层
 * @dependencies testing, testify, shopspring/decimal, bankdq-service/testutil
 * @refs rules_business.go
 */

package audit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdq-service/service/models"
	"bankdq-service/testutil"
)

func TestRiskRatingForScoreBands(t *testing.T) {
	assert.Equal(t, models.RiskRatingLow, RiskRatingForScore(0))
	assert.Equal(t, models.RiskRatingLow, RiskRatingForScore(30))
	assert.Equal(t, models.RiskRatingMedium, RiskRatingForScore(30.1))
	assert.Equal(t, models.RiskRatingMedium, RiskRatingForScore(60))
	assert.Equal(t, models.RiskRatingHigh, RiskRatingForScore(60.1))
	assert.Equal(t, models.RiskRatingHigh, RiskRatingForScore(100))
}

func TestRiskConsistencyViolation(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.Customers[0].RiskScore = 80
	batch.Customers[0].RiskRating = models.RiskRatingLow

	result := auditBatch(batch)
	assert.Len(t, violationsFor(result, RuleCustomerRiskConsistency), 1)
}

func TestRiskConsistencySkippedWhenScoreOutOfRange(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.Customers[0].RiskScore = 150

	result := auditBatch(batch)
	assert.Len(t, violationsFor(result, RuleCustomerRiskScoreRange), 1)
	assert.Empty(t, violationsFor(result, RuleCustomerRiskConsistency), "评分越界时一致性规则不重复报告")
}

func TestBalanceIdentityViolation(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.BankAccounts[0].CurrentBalance = decimal.NewFromInt(999)

	result := auditBatch(batch)
	violations := violationsFor(result, RuleAccountBalanceIdentity)
	require.Len(t, violations, 1)
	assert.Equal(t, models.SeverityMedium, violations[0].Severity)
}

func TestNegativeBalanceViolation(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.BankAccounts[0].AvailableBalance = decimal.NewFromInt(-100)

	result := auditBatch(batch)
	// 负余额同时破坏恒等式，两条规则都报告
	assert.Len(t, violationsFor(result, RuleAccountBalanceNegative), 1)
	assert.Len(t, violationsFor(result, RuleAccountBalanceIdentity), 1)
}

func TestTransactionTypeShapeTable(t *testing.T) {
	recipient := "280000000000000001"
	bank := "VCB"
	provider := "EVN"
	bill := "BILL00000001"

	testCases := []struct {
		name      string
		mutate    func(*models.Transaction)
		wantShape bool
	}{
		{
			name: "行内转账缺收款账号",
			mutate: func(tx *models.Transaction) {
				tx.TransactionType = models.TxnInternalTransfer
				tx.RecipientAccountNumber = nil
			},
			wantShape: true,
		},
		{
			name: "行内转账禁填银行代码",
			mutate: func(tx *models.Transaction) {
				tx.TransactionType = models.TxnInternalTransfer
				tx.RecipientAccountNumber = &recipient
				tx.RecipientBankCode = &bank
			},
			wantShape: true,
		},
		{
			name: "跨行转账形态合法",
			mutate: func(tx *models.Transaction) {
				tx.TransactionType = models.TxnExternalTransfer
				tx.RecipientAccountNumber = &recipient
				tx.RecipientBankCode = &bank
			},
			wantShape: false,
		},
		{
			name: "跨行转账缺银行代码",
			mutate: func(tx *models.Transaction) {
				tx.TransactionType = models.TxnExternalTransfer
				tx.RecipientAccountNumber = &recipient
				tx.RecipientBankCode = nil
			},
			wantShape: true,
		},
		{
			name: "缴费形态合法",
			mutate: func(tx *models.Transaction) {
				tx.TransactionType = models.TxnBillPayment
				tx.RecipientAccountNumber = nil
				tx.ServiceProviderCode = &provider
				tx.BillNumber = &bill
			},
			wantShape: false,
		},
		{
			name: "缴费禁填收款账号",
			mutate: func(tx *models.Transaction) {
				tx.TransactionType = models.TxnBillPayment
				tx.ServiceProviderCode = &provider
				tx.BillNumber = &bill
			},
			wantShape: true,
		},
		{
			name: "交易类型非法",
			mutate: func(tx *models.Transaction) {
				tx.TransactionType = "Cash_Deposit"
			},
			wantShape: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			batch := testutil.NewCleanBatch(1)
			tc.mutate(&batch.Transactions[0])

			result := auditBatch(batch)
			violations := violationsFor(result, RuleTransactionTypeShape)
			if tc.wantShape {
				assert.NotEmpty(t, violations)
			} else {
				assert.Empty(t, violations)
			}
		})
	}
}

func TestStrongAuthThreshold(t *testing.T) {
	testCases := []struct {
		name     string
		amount   int64
		currency string
		method   string
		wantHit  bool
	}{
		{"达门槛弱认证", 10_000_000, "VND", "PIN", true},
		{"达门槛强认证", 10_000_000, "VND", "PIN_OTP", false},
		{"达门槛生物强认证", 50_000_000, "VND", "PIN_OTP_Biometric", false},
		{"低于门槛弱认证", 9_999_999, "VND", "PIN", false},
		{"外币不适用门槛", 20_000_000, "USD", "PIN", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			batch := testutil.NewCleanBatch(1)
			tx := &batch.Transactions[0]
			tx.Amount = decimal.NewFromInt(tc.amount)
			tx.Currency = tc.currency
			tx.AuthenticationMethod = tc.method
			tx.Fee = decimal.Zero

			result := auditBatch(batch)
			violations := violationsFor(result, RuleTransactionAuthTier)
			if tc.wantHit {
				require.Len(t, violations, 1)
				assert.Equal(t, models.SeverityHigh, violations[0].Severity)
			} else {
				assert.Empty(t, violations)
			}
		})
	}
}

func TestFeeBound(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	// 手续费超过金额10%
	batch.Transactions[0].Fee = batch.Transactions[0].Amount.Mul(decimal.RequireFromString("0.2"))
	// 负手续费
	batch.Transactions[1].Fee = decimal.NewFromInt(-10)

	result := auditBatch(batch)
	assert.Len(t, violationsFor(result, RuleTransactionFeeBound), 2)
}

func TestAmountMustBePositive(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.Transactions[0].Amount = decimal.Zero

	result := auditBatch(batch)
	violations := violationsFor(result, RuleTransactionAmountPositive)
	require.Len(t, violations, 1)
	assert.Equal(t, models.SeverityHigh, violations[0].Severity)
	// 金额非正时手续费规则让位
	assert.Empty(t, violationsFor(result, RuleTransactionFeeBound))
}

func TestUntrustedActiveDeviceIsFlagged(t *testing.T) {
	batch := testutil.NewCleanBatch(2)
	batch.CustomerDevices[0].IsTrusted = false // Active + 未受信
	batch.CustomerDevices[1].IsTrusted = false
	batch.CustomerDevices[1].Status = "Blocked" // 非Active不报告

	result := auditBatch(batch)
	violations := violationsFor(result, RuleDeviceTrustStatus)
	require.Len(t, violations, 1)
	assert.Equal(t, models.SeverityMedium, violations[0].Severity)
	assert.Equal(t, batch.CustomerDevices[0].DeviceID, violations[0].RecordID)
}

func TestDailyCumulativeLimitRequiresStrongAuth(t *testing.T) {
	// 三笔同日基础认证VND交易，单笔低于10M门槛但累计24M
	makeBatch := func(mutate func(*models.Batch)) *models.Batch {
		batch := testutil.NewCleanBatch(1)
		account := batch.BankAccounts[0]
		batch.Transactions = nil
		for i := 1; i <= 3; i++ {
			batch.Transactions = append(batch.Transactions,
				testutil.MakeTransaction(account, i, func(tx *models.Transaction) {
					tx.Amount = decimal.NewFromInt(8_000_000)
					tx.Fee = decimal.NewFromInt(1_000)
				}))
		}
		if mutate != nil {
			mutate(batch)
		}
		return batch
	}

	t.Run("累计达门槛且无强认证", func(t *testing.T) {
		batch := makeBatch(nil)
		result := auditBatch(batch)

		violations := violationsFor(result, RuleCustomerDailyLimitAuth)
		require.Len(t, violations, 1)
		assert.Equal(t, models.SeverityMedium, violations[0].Severity)
		assert.Equal(t, batch.Customers[0].CustomerID, violations[0].RecordID)
		assert.Equal(t, "2025-01-01", violations[0].ObservedValue)
	})

	t.Run("当日有一笔强认证即合规", func(t *testing.T) {
		batch := makeBatch(func(b *models.Batch) {
			b.Transactions[2].AuthenticationMethod = "PIN_OTP"
		})
		assert.Empty(t, violationsFor(auditBatch(batch), RuleCustomerDailyLimitAuth))
	})

	t.Run("交易分散到不同日期", func(t *testing.T) {
		batch := makeBatch(func(b *models.Batch) {
			b.Transactions[2].CreatedAt = b.Transactions[2].CreatedAt.Add(48 * time.Hour)
		})
		assert.Empty(t, violationsFor(auditBatch(batch), RuleCustomerDailyLimitAuth))
	})

	t.Run("未完成交易不计入累计", func(t *testing.T) {
		batch := makeBatch(func(b *models.Batch) {
			b.Transactions[2].Status = "Pending"
		})
		assert.Empty(t, violationsFor(auditBatch(batch), RuleCustomerDailyLimitAuth))
	})

	t.Run("外币交易不计入累计", func(t *testing.T) {
		batch := makeBatch(func(b *models.Batch) {
			b.Transactions[2].Currency = "USD"
		})
		assert.Empty(t, violationsFor(auditBatch(batch), RuleCustomerDailyLimitAuth))
	})
}

func TestAuthLogAttemptCount(t *testing.T) {
	batch := testutil.NewCleanBatch(1)
	batch.AuthenticationLogs[0].AttemptCount = 0

	result := auditBatch(batch)
	assert.Len(t, violationsFor(result, RuleAuthLogAttemptsMin), 1)
}
