/*
 * @module service/audit/rules_business
 * @description 业务规则族：风险评分一致性、余额恒等式、交易类型形态、强认证门槛（2345/QĐ-NHNN 2023）、可疑设备
 * @architecture 分层架构 - 审计服务层
 * @rules 金额比较全部走decimal；强认证门槛仅对VND交易生效
 * @dependencies bankdq-service/service/models, github.com/shopspring/decimal
 * @refs service/audit/catalog.go, service/remediation/fixes.go
 */

package audit

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bankdq-service/service/models"
)

var (
	// 强认证金额门槛：>=10,000,000 VND
	StrongAuthThreshold = decimal.NewFromInt(10_000_000)

	// 日累计门槛：客户单日VND交易累计>=20,000,000时当日须至少一笔强认证交易
	DailyStrongAuthThreshold = decimal.NewFromInt(20_000_000)

	// 手续费上限为交易金额的10%
	maxFeeRatio = decimal.RequireFromString("0.1")
)

// RiskRatingForScore 风险评分到风险等级的映射：<=30 Low, <=60 Medium, >60 High
func RiskRatingForScore(score float64) string {
	switch {
	case score <= 30:
		return models.RiskRatingLow
	case score <= 60:
		return models.RiskRatingMedium
	default:
		return models.RiskRatingHigh
	}
}

// MaxFee 金额对应的手续费上限
func MaxFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(maxFeeRatio)
}

// --- 客户 ---

func checkCustomerRiskScoreRange(rec models.Record, _ *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.RiskScore >= 0 && c.RiskScore <= 100 {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"risk_score"},
		Message:       "风险评分超出[0,100]范围",
		ObservedValue: fmt.Sprintf("%g", c.RiskScore),
	}}
}

// checkCustomerRiskConsistency 风险等级必须与评分区间一致；
// 评分越界时先由范围规则处理，这里不重复报告
func checkCustomerRiskConsistency(rec models.Record, _ *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.RiskRating == "" || c.RiskScore < 0 || c.RiskScore > 100 {
		return nil
	}
	expected := RiskRatingForScore(c.RiskScore)
	if c.RiskRating == expected {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"risk_rating", "risk_score"},
		Message:       fmt.Sprintf("风险等级与评分不一致，评分 %g 应为 %s", c.RiskScore, expected),
		ObservedValue: c.RiskRating,
	}}
}

// checkCustomerDailyLimitAuth 客户单日已完成VND交易累计达到20M时，
// 当日必须至少有一笔使用强认证方式的交易，逐日报告
func checkCustomerDailyLimitAuth(rec models.Record, idx *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	var out []models.Violation
	for _, day := range idx.DailyTxnStats(c.CustomerID) {
		if day.Total.LessThan(DailyStrongAuthThreshold) || day.HasStrongAuth {
			continue
		}
		out = append(out, models.Violation{
			Fields: []string{"customer_id"},
			Message: fmt.Sprintf("%s 当日累计VND交易 %s（%d笔）达到 %s 门槛，且无强认证交易",
				day.Date, day.Total.String(), day.Count, DailyStrongAuthThreshold.String()),
			ObservedValue: day.Date,
		})
	}
	return out
}

// --- 银行账户 ---

func checkAccountBalanceIdentity(rec models.Record, _ *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	expected := a.AvailableBalance.Add(a.HoldAmount)
	if a.CurrentBalance.Equal(expected) {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"current_balance", "available_balance", "hold_amount"},
		Message:       fmt.Sprintf("余额恒等式不成立，current_balance应为 %s", expected.String()),
		ObservedValue: a.CurrentBalance.String(),
	}}
}

func checkAccountBalanceNegative(rec models.Record, _ *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	var fields []string
	if a.AvailableBalance.IsNegative() {
		fields = append(fields, "available_balance")
	}
	if a.HoldAmount.IsNegative() {
		fields = append(fields, "hold_amount")
	}
	if len(fields) == 0 {
		return nil
	}
	return []models.Violation{{
		Fields:        fields,
		Message:       "余额字段出现负值",
		ObservedValue: fmt.Sprintf("available=%s hold=%s", a.AvailableBalance.String(), a.HoldAmount.String()),
	}}
}

func checkAccountLimitsPositive(rec models.Record, _ *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	var fields []string
	if a.DailyTransferLimit.IsNegative() || a.DailyTransferLimit.IsZero() {
		fields = append(fields, "daily_transfer_limit")
	}
	if a.DailyOnlinePaymentLimit.IsNegative() || a.DailyOnlinePaymentLimit.IsZero() {
		fields = append(fields, "daily_online_payment_limit")
	}
	if len(fields) == 0 {
		return nil
	}
	return []models.Violation{{
		Fields:        fields,
		Message:       "日限额必须为正数",
		ObservedValue: fmt.Sprintf("transfer=%s payment=%s", a.DailyTransferLimit.String(), a.DailyOnlinePaymentLimit.String()),
	}}
}

// --- 客户设备 ---

// checkDeviceTrustStatus 未受信但处于Active状态的设备标记为可疑
func checkDeviceTrustStatus(rec models.Record, _ *BatchIndex) []models.Violation {
	d := rec.(models.CustomerDevice)
	if d.IsTrusted || d.Status != "Active" {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"is_trusted", "status"},
		Message:       "未受信设备处于Active状态，需人工复核",
		ObservedValue: d.DeviceIdentifier,
	}}
}

// --- 交易 ---

func checkTransactionAmountPositive(rec models.Record, _ *BatchIndex) []models.Violation {
	t := rec.(models.Transaction)
	if t.Amount.IsPositive() {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"amount"},
		Message:       "交易金额必须为正数",
		ObservedValue: t.Amount.String(),
	}}
}

// checkTransactionFeeBound 手续费必须落在[0, 金额*10%]区间；
// 金额本身非正时由金额规则处理
func checkTransactionFeeBound(rec models.Record, _ *BatchIndex) []models.Violation {
	t := rec.(models.Transaction)
	if !t.Amount.IsPositive() {
		return nil
	}
	if !t.Fee.IsNegative() && t.Fee.LessThanOrEqual(MaxFee(t.Amount)) {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"fee"},
		Message:       fmt.Sprintf("手续费超出[0, %s]区间", MaxFee(t.Amount).String()),
		ObservedValue: t.Fee.String(),
	}}
}

// checkTransactionTypeShape 交易类型决定收款方/账单字段的形态：
//
//	Internal_Transfer: 必填recipient_account_number，禁填bank_code/provider/bill
//	External_Transfer: 必填recipient_account_number+recipient_bank_code，禁填provider/bill
//	Bill_Payment:      必填service_provider_code+bill_number，禁填recipient字段
func checkTransactionTypeShape(rec models.Record, _ *BatchIndex) []models.Violation {
	t := rec.(models.Transaction)

	present := func(p *string) bool { return p != nil && *p != "" }

	var missing, forbidden []string
	switch t.TransactionType {
	case models.TxnInternalTransfer:
		if !present(t.RecipientAccountNumber) {
			missing = append(missing, "recipient_account_number")
		}
		if present(t.RecipientBankCode) {
			forbidden = append(forbidden, "recipient_bank_code")
		}
		if present(t.ServiceProviderCode) {
			forbidden = append(forbidden, "service_provider_code")
		}
		if present(t.BillNumber) {
			forbidden = append(forbidden, "bill_number")
		}
	case models.TxnExternalTransfer:
		if !present(t.RecipientAccountNumber) {
			missing = append(missing, "recipient_account_number")
		}
		if !present(t.RecipientBankCode) {
			missing = append(missing, "recipient_bank_code")
		}
		if present(t.ServiceProviderCode) {
			forbidden = append(forbidden, "service_provider_code")
		}
		if present(t.BillNumber) {
			forbidden = append(forbidden, "bill_number")
		}
	case models.TxnBillPayment:
		if !present(t.ServiceProviderCode) {
			missing = append(missing, "service_provider_code")
		}
		if !present(t.BillNumber) {
			missing = append(missing, "bill_number")
		}
		if present(t.RecipientAccountNumber) {
			forbidden = append(forbidden, "recipient_account_number")
		}
		if present(t.RecipientBankCode) {
			forbidden = append(forbidden, "recipient_bank_code")
		}
	default:
		return []models.Violation{{
			Fields:        []string{"transaction_type"},
			Message:       fmt.Sprintf("交易类型非法，允许值: %v", models.TransactionTypes),
			ObservedValue: t.TransactionType,
		}}
	}

	if len(missing) == 0 && len(forbidden) == 0 {
		return nil
	}
	fields := append(append([]string{}, missing...), forbidden...)
	return []models.Violation{{
		Fields:        fields,
		Message:       fmt.Sprintf("交易类型 %s 的字段形态不符，缺失 %v 禁填 %v", t.TransactionType, missing, forbidden),
		ObservedValue: t.TransactionType,
	}}
}

// checkTransactionAuthTier 金额>=10M VND的交易必须使用强认证方式
func checkTransactionAuthTier(rec models.Record, _ *BatchIndex) []models.Violation {
	t := rec.(models.Transaction)
	if t.Currency != "VND" || t.Amount.LessThan(StrongAuthThreshold) {
		return nil
	}
	if contains(models.StrongAuthMethods, t.AuthenticationMethod) {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"authentication_method", "amount"},
		Message:       fmt.Sprintf("金额 %s VND 达到强认证门槛，认证方式必须为 %v", t.Amount.String(), models.StrongAuthMethods),
		ObservedValue: t.AuthenticationMethod,
	}}
}

func checkTransactionFraudScoreRange(rec models.Record, _ *BatchIndex) []models.Violation {
	t := rec.(models.Transaction)
	if t.FraudScore >= 0 && t.FraudScore <= 100 {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"fraud_score"},
		Message:       "欺诈评分超出[0,100]范围",
		ObservedValue: fmt.Sprintf("%g", t.FraudScore),
	}}
}

// --- 认证日志 ---

func checkAuthLogAttemptsMin(rec models.Record, _ *BatchIndex) []models.Violation {
	l := rec.(models.AuthenticationLog)
	if l.AttemptCount >= 1 {
		return nil
	}
	return []models.Violation{{
		Fields:        []string{"attempt_count"},
		Message:       "尝试次数必须至少为1",
		ObservedValue: fmt.Sprintf("%d", l.AttemptCount),
	}}
}
