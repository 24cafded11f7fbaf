/*
 * @module service/remediation/fixes
 * @description 自动修复函数表：按规则名注册确定性修复，修复返回新记录副本，原记录不被修改
 * @architecture 分层架构 - 清洗服务层
 * @stateFlow 违规 -> 查修复表 -> 应用修复得到新记录 -> 替换入工作批次
 * @rules 修复必须幂等：对已修复的记录再次应用不产生变化；无法修复时返回applied=false而非错误
 * @dependencies bankdq-service/service/audit, bankdq-service/service/models
 * @refs service/remediation/engine.go
 */

package remediation

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"bankdq-service/service/audit"
	"bankdq-service/service/models"
)

// FixFunc 单条记录的修复函数。返回修复后的记录和是否实际应用了修复；
// 记录类型与规则不匹配等内部错误通过error返回，调用方将记录隔离
type FixFunc func(rec models.Record) (models.Record, bool, error)

var nonDigitPattern = regexp.MustCompile(`\D`)

// DefaultFixTable 内置修复表，键为规则名。未注册的规则没有自动修复
func DefaultFixTable() map[string]FixFunc {
	return map[string]FixFunc{
		audit.RuleCustomerPhoneFormat:        fixCustomerPhone,
		audit.RuleCustomerEmailFormat:        fixCustomerEmail,
		audit.RuleCustomerTaxIDFormat:        fixCustomerTaxID,
		audit.RuleCustomerRiskScoreRange:     fixCustomerRiskScore,
		audit.RuleAccountBalanceIdentity:     fixAccountBalanceIdentity,
		audit.RuleAccountBalanceNegative:     fixAccountBalanceNegative,
		audit.RuleTransactionFeeBound:        fixTransactionFee,
		audit.RuleTransactionFraudScoreRange: fixTransactionFraudScore,
		audit.RuleAuthLogAttemptsMin:         fixAuthLogAttempts,
	}
}

// fixCustomerPhone 去掉手机号中的非数字字符，结果仍不合法则放弃修复
func fixCustomerPhone(rec models.Record) (models.Record, bool, error) {
	c, ok := rec.(models.Customer)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	digits := nonDigitPattern.ReplaceAllString(c.PhoneNumber, "")
	if !audit.IsValidPhone(digits) {
		return rec, false, nil
	}
	c.PhoneNumber = digits
	return c, true, nil
}

// fixCustomerEmail 可选字段格式非法时置空
func fixCustomerEmail(rec models.Record) (models.Record, bool, error) {
	c, ok := rec.(models.Customer)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	c.Email = nil
	return c, true, nil
}

// fixCustomerTaxID 可选字段格式非法时置空
func fixCustomerTaxID(rec models.Record) (models.Record, bool, error) {
	c, ok := rec.(models.Customer)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	c.TaxIdentificationNumber = nil
	return c, true, nil
}

// fixCustomerRiskScore 风险评分收敛到[0,100]，风险等级同步重算保持一致
func fixCustomerRiskScore(rec models.Record) (models.Record, bool, error) {
	c, ok := rec.(models.Customer)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	switch {
	case c.RiskScore < 0:
		c.RiskScore = 0
	case c.RiskScore > 100:
		c.RiskScore = 100
	default:
		return rec, false, nil
	}
	c.RiskRating = audit.RiskRatingForScore(c.RiskScore)
	return c, true, nil
}

// fixAccountBalanceIdentity 按恒等式重算current_balance；
// 任一操作数为负时放弃，由负余额修复先行处理
func fixAccountBalanceIdentity(rec models.Record) (models.Record, bool, error) {
	a, ok := rec.(models.BankAccount)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	if a.AvailableBalance.IsNegative() || a.HoldAmount.IsNegative() {
		return rec, false, nil
	}
	expected := a.AvailableBalance.Add(a.HoldAmount)
	if a.CurrentBalance.Equal(expected) {
		return rec, false, nil
	}
	a.CurrentBalance = expected
	return a, true, nil
}

// fixAccountBalanceNegative 负余额归零并重算current_balance，
// 保证修复后恒等式同时成立
func fixAccountBalanceNegative(rec models.Record) (models.Record, bool, error) {
	a, ok := rec.(models.BankAccount)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	applied := false
	if a.AvailableBalance.IsNegative() {
		a.AvailableBalance = decimal.Zero
		applied = true
	}
	if a.HoldAmount.IsNegative() {
		a.HoldAmount = decimal.Zero
		applied = true
	}
	if !applied {
		return rec, false, nil
	}
	a.CurrentBalance = a.AvailableBalance.Add(a.HoldAmount)
	return a, true, nil
}

// fixTransactionFee 手续费收敛到[0, 金额*10%]区间
func fixTransactionFee(rec models.Record) (models.Record, bool, error) {
	t, ok := rec.(models.Transaction)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	if !t.Amount.IsPositive() {
		return rec, false, nil
	}
	max := audit.MaxFee(t.Amount)
	switch {
	case t.Fee.IsNegative():
		t.Fee = decimal.Zero
	case t.Fee.GreaterThan(max):
		t.Fee = max
	default:
		return rec, false, nil
	}
	return t, true, nil
}

func fixTransactionFraudScore(rec models.Record) (models.Record, bool, error) {
	t, ok := rec.(models.Transaction)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	switch {
	case t.FraudScore < 0:
		t.FraudScore = 0
	case t.FraudScore > 100:
		t.FraudScore = 100
	default:
		return rec, false, nil
	}
	return t, true, nil
}

func fixAuthLogAttempts(rec models.Record) (models.Record, bool, error) {
	l, ok := rec.(models.AuthenticationLog)
	if !ok {
		return rec, false, fmt.Errorf("修复目标类型不匹配: %T", rec)
	}
	if l.AttemptCount >= 1 {
		return rec, false, nil
	}
	l.AttemptCount = 1
	return l, true, nil
}
