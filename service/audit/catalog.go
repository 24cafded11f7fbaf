/*
 * @module service/audit/catalog
 * @description 质量规则目录，显式构造的不可变规则集，按实体类型组织并保持注册顺序
 * @architecture 分层架构 - 审计服务层
 * @documentReference ai_docs/banking_dq_audit.md
 * @stateFlow 目录构造 -> 规则按实体分组 -> 审计引擎按序执行
 * @rules 规则是纯函数，互相独立，只读访问批次索引，禁止修改记录
 * @dependencies bankdq-service/service/models
 * @refs service/audit/engine.go, service/remediation
 */

package audit

import (
	"fmt"

	"bankdq-service/service/models"
)

// 规则名称常量，清洗引擎的修复函数表以规则名为键
const (
	// 客户规则
	RuleCustomerRequiredFields   = "customer_required_fields"
	RuleCustomerPhoneUnique      = "customer_phone_unique"
	RuleCustomerEmailUnique      = "customer_email_unique"
	RuleCustomerTaxIDUnique      = "customer_tax_id_unique"
	RuleCustomerIDPassportUnique = "customer_id_passport_unique"
	RuleCustomerPhoneFormat      = "customer_phone_format"
	RuleCustomerEmailFormat      = "customer_email_format"
	RuleCustomerTaxIDFormat      = "customer_tax_id_format"
	RuleCustomerIDPassportFormat = "customer_id_passport_format"
	RuleCustomerRiskScoreRange   = "customer_risk_score_range"
	RuleCustomerRiskConsistency  = "customer_risk_consistency"
	RuleCustomerStatusValid      = "customer_status_valid"
	RuleCustomerDailyLimitAuth   = "customer_daily_limit_auth"

	// 人脸模板规则
	RuleFaceTemplateRequiredFields = "face_template_required_fields"
	RuleFaceTemplateCustomerUnique = "face_template_customer_unique"
	RuleFaceTemplateCustomerExists = "face_template_customer_exists"

	// 银行账户规则
	RuleAccountRequiredFields  = "account_required_fields"
	RuleAccountNumberUnique    = "account_number_unique"
	RuleAccountNumberFormat    = "account_number_format"
	RuleAccountCustomerExists  = "account_customer_exists"
	RuleAccountBalanceIdentity = "account_balance_identity"
	RuleAccountBalanceNegative = "account_balance_negative"
	RuleAccountTypeValid       = "account_type_valid"
	RuleAccountCurrencyValid   = "account_currency_valid"
	RuleAccountLimitsPositive  = "account_limits_positive"

	// 客户设备规则
	RuleDeviceRequiredFields   = "device_required_fields"
	RuleDeviceIdentifierUnique = "device_identifier_unique"
	RuleDeviceIdentifierFormat = "device_identifier_format"
	RuleDeviceCustomerExists   = "device_customer_exists"
	RuleDeviceTypeValid        = "device_type_valid"
	RuleDeviceStatusValid      = "device_status_valid"
	RuleDeviceTrustStatus      = "device_trust_status"

	// 交易规则
	RuleTransactionRequiredFields  = "transaction_required_fields"
	RuleTransactionIDUnique        = "transaction_id_unique"
	RuleTransactionAccountExists   = "transaction_account_exists"
	RuleTransactionAmountPositive  = "transaction_amount_positive"
	RuleTransactionFeeBound        = "transaction_fee_bound"
	RuleTransactionTypeShape       = "transaction_type_shape"
	RuleTransactionAuthTier        = "transaction_auth_tier"
	RuleTransactionFraudScoreRange = "transaction_fraud_score_range"

	// 认证日志规则
	RuleAuthLogRequiredFields    = "authlog_required_fields"
	RuleAuthLogIDUnique          = "authlog_id_unique"
	RuleAuthLogCustomerExists    = "authlog_customer_exists"
	RuleAuthLogDeviceExists      = "authlog_device_exists"
	RuleAuthLogTransactionExists = "authlog_transaction_exists"
	RuleAuthLogAttemptsMin       = "authlog_attempts_min"
	RuleAuthLogStatusValid       = "authlog_status_valid"

	// 合成规则：规则自身评估失败时由引擎记录
	RuleEvaluationError = "evaluation_error"

	// 合成规则：上游记录被隔离导致的级联隔离，由清洗引擎记录
	RuleReferentialCascade = "referential_cascade"
)

// CheckFunc 规则评估函数，只填充违规的字段、消息和观测值；
// 规则名、严重级别、实体类型和记录ID由审计引擎统一补齐
type CheckFunc func(rec models.Record, idx *BatchIndex) []models.Violation

// Rule 单条质量规则
type Rule struct {
	Name     string
	Entity   models.EntityType
	Severity models.Severity
	Check    CheckFunc
}

// Catalog 不可变规则目录，构造后通过依赖注入传给审计引擎
type Catalog struct {
	rules  map[models.EntityType][]Rule
	byName map[string]Rule
	total  int
}

// NewCatalog 构造规则目录，注册到未知实体类型属于配置错误，启动期立即失败
func NewCatalog(rules ...Rule) (*Catalog, error) {
	known := make(map[models.EntityType]bool, len(models.EntityTypes))
	for _, entity := range models.EntityTypes {
		known[entity] = true
	}

	catalog := &Catalog{
		rules:  make(map[models.EntityType][]Rule),
		byName: make(map[string]Rule, len(rules)),
	}

	for _, rule := range rules {
		if !known[rule.Entity] {
			return nil, fmt.Errorf("规则 %s 注册到未知实体类型: %s", rule.Name, rule.Entity)
		}
		if rule.Check == nil {
			return nil, fmt.Errorf("规则 %s 缺少评估函数", rule.Name)
		}
		if _, dup := catalog.byName[rule.Name]; dup {
			return nil, fmt.Errorf("规则名称重复: %s", rule.Name)
		}
		catalog.byName[rule.Name] = rule
		catalog.rules[rule.Entity] = append(catalog.rules[rule.Entity], rule)
		catalog.total++
	}

	return catalog, nil
}

// MustNewCatalog 构造规则目录，配置错误直接panic，仅用于内置目录
func MustNewCatalog(rules ...Rule) *Catalog {
	catalog, err := NewCatalog(rules...)
	if err != nil {
		panic(err)
	}
	return catalog
}

// RulesFor 返回实体类型的规则列表，顺序即注册顺序
func (c *Catalog) RulesFor(entity models.EntityType) []Rule {
	return c.rules[entity]
}

// RuleByName 按规则名查找，清洗引擎在修复后复检残留违规时使用
func (c *Catalog) RuleByName(name string) (Rule, bool) {
	rule, ok := c.byName[name]
	return rule, ok
}

// Size 规则总数
func (c *Catalog) Size() int {
	return c.total
}

// DefaultCatalog 内置规则目录，覆盖唯一性、格式、引用完整性和业务规则四个族
func DefaultCatalog() *Catalog {
	return MustNewCatalog(
		// 客户
		Rule{Name: RuleCustomerRequiredFields, Entity: models.EntityCustomer, Severity: models.SeverityHigh, Check: checkCustomerRequiredFields},
		Rule{Name: RuleCustomerPhoneUnique, Entity: models.EntityCustomer, Severity: models.SeverityCritical, Check: checkCustomerPhoneUnique},
		Rule{Name: RuleCustomerEmailUnique, Entity: models.EntityCustomer, Severity: models.SeverityCritical, Check: checkCustomerEmailUnique},
		Rule{Name: RuleCustomerTaxIDUnique, Entity: models.EntityCustomer, Severity: models.SeverityCritical, Check: checkCustomerTaxIDUnique},
		Rule{Name: RuleCustomerIDPassportUnique, Entity: models.EntityCustomer, Severity: models.SeverityCritical, Check: checkCustomerIDPassportUnique},
		Rule{Name: RuleCustomerPhoneFormat, Entity: models.EntityCustomer, Severity: models.SeverityHigh, Check: checkCustomerPhoneFormat},
		Rule{Name: RuleCustomerEmailFormat, Entity: models.EntityCustomer, Severity: models.SeverityMedium, Check: checkCustomerEmailFormat},
		Rule{Name: RuleCustomerTaxIDFormat, Entity: models.EntityCustomer, Severity: models.SeverityMedium, Check: checkCustomerTaxIDFormat},
		Rule{Name: RuleCustomerIDPassportFormat, Entity: models.EntityCustomer, Severity: models.SeverityHigh, Check: checkCustomerIDPassportFormat},
		Rule{Name: RuleCustomerRiskScoreRange, Entity: models.EntityCustomer, Severity: models.SeverityMedium, Check: checkCustomerRiskScoreRange},
		Rule{Name: RuleCustomerRiskConsistency, Entity: models.EntityCustomer, Severity: models.SeverityMedium, Check: checkCustomerRiskConsistency},
		Rule{Name: RuleCustomerStatusValid, Entity: models.EntityCustomer, Severity: models.SeverityHigh, Check: checkCustomerStatusValid},
		Rule{Name: RuleCustomerDailyLimitAuth, Entity: models.EntityCustomer, Severity: models.SeverityMedium, Check: checkCustomerDailyLimitAuth},

		// 人脸模板
		Rule{Name: RuleFaceTemplateRequiredFields, Entity: models.EntityFaceTemplate, Severity: models.SeverityHigh, Check: checkFaceTemplateRequiredFields},
		Rule{Name: RuleFaceTemplateCustomerUnique, Entity: models.EntityFaceTemplate, Severity: models.SeverityCritical, Check: checkFaceTemplateCustomerUnique},
		Rule{Name: RuleFaceTemplateCustomerExists, Entity: models.EntityFaceTemplate, Severity: models.SeverityCritical, Check: checkFaceTemplateCustomerExists},

		// 银行账户
		Rule{Name: RuleAccountRequiredFields, Entity: models.EntityBankAccount, Severity: models.SeverityHigh, Check: checkAccountRequiredFields},
		Rule{Name: RuleAccountNumberUnique, Entity: models.EntityBankAccount, Severity: models.SeverityCritical, Check: checkAccountNumberUnique},
		Rule{Name: RuleAccountNumberFormat, Entity: models.EntityBankAccount, Severity: models.SeverityHigh, Check: checkAccountNumberFormat},
		Rule{Name: RuleAccountCustomerExists, Entity: models.EntityBankAccount, Severity: models.SeverityCritical, Check: checkAccountCustomerExists},
		Rule{Name: RuleAccountBalanceIdentity, Entity: models.EntityBankAccount, Severity: models.SeverityMedium, Check: checkAccountBalanceIdentity},
		Rule{Name: RuleAccountBalanceNegative, Entity: models.EntityBankAccount, Severity: models.SeverityMedium, Check: checkAccountBalanceNegative},
		Rule{Name: RuleAccountTypeValid, Entity: models.EntityBankAccount, Severity: models.SeverityHigh, Check: checkAccountTypeValid},
		Rule{Name: RuleAccountCurrencyValid, Entity: models.EntityBankAccount, Severity: models.SeverityHigh, Check: checkAccountCurrencyValid},
		Rule{Name: RuleAccountLimitsPositive, Entity: models.EntityBankAccount, Severity: models.SeverityMedium, Check: checkAccountLimitsPositive},

		// 客户设备
		Rule{Name: RuleDeviceRequiredFields, Entity: models.EntityCustomerDevice, Severity: models.SeverityHigh, Check: checkDeviceRequiredFields},
		Rule{Name: RuleDeviceIdentifierUnique, Entity: models.EntityCustomerDevice, Severity: models.SeverityCritical, Check: checkDeviceIdentifierUnique},
		Rule{Name: RuleDeviceIdentifierFormat, Entity: models.EntityCustomerDevice, Severity: models.SeverityHigh, Check: checkDeviceIdentifierFormat},
		Rule{Name: RuleDeviceCustomerExists, Entity: models.EntityCustomerDevice, Severity: models.SeverityCritical, Check: checkDeviceCustomerExists},
		Rule{Name: RuleDeviceTypeValid, Entity: models.EntityCustomerDevice, Severity: models.SeverityHigh, Check: checkDeviceTypeValid},
		Rule{Name: RuleDeviceStatusValid, Entity: models.EntityCustomerDevice, Severity: models.SeverityHigh, Check: checkDeviceStatusValid},
		Rule{Name: RuleDeviceTrustStatus, Entity: models.EntityCustomerDevice, Severity: models.SeverityMedium, Check: checkDeviceTrustStatus},

		// 交易
		Rule{Name: RuleTransactionRequiredFields, Entity: models.EntityTransaction, Severity: models.SeverityHigh, Check: checkTransactionRequiredFields},
		Rule{Name: RuleTransactionIDUnique, Entity: models.EntityTransaction, Severity: models.SeverityCritical, Check: checkTransactionIDUnique},
		Rule{Name: RuleTransactionAccountExists, Entity: models.EntityTransaction, Severity: models.SeverityCritical, Check: checkTransactionAccountExists},
		Rule{Name: RuleTransactionAmountPositive, Entity: models.EntityTransaction, Severity: models.SeverityHigh, Check: checkTransactionAmountPositive},
		Rule{Name: RuleTransactionFeeBound, Entity: models.EntityTransaction, Severity: models.SeverityMedium, Check: checkTransactionFeeBound},
		Rule{Name: RuleTransactionTypeShape, Entity: models.EntityTransaction, Severity: models.SeverityHigh, Check: checkTransactionTypeShape},
		Rule{Name: RuleTransactionAuthTier, Entity: models.EntityTransaction, Severity: models.SeverityHigh, Check: checkTransactionAuthTier},
		Rule{Name: RuleTransactionFraudScoreRange, Entity: models.EntityTransaction, Severity: models.SeverityMedium, Check: checkTransactionFraudScoreRange},

		// 认证日志
		Rule{Name: RuleAuthLogRequiredFields, Entity: models.EntityAuthenticationLog, Severity: models.SeverityHigh, Check: checkAuthLogRequiredFields},
		Rule{Name: RuleAuthLogIDUnique, Entity: models.EntityAuthenticationLog, Severity: models.SeverityCritical, Check: checkAuthLogIDUnique},
		Rule{Name: RuleAuthLogCustomerExists, Entity: models.EntityAuthenticationLog, Severity: models.SeverityCritical, Check: checkAuthLogCustomerExists},
		Rule{Name: RuleAuthLogDeviceExists, Entity: models.EntityAuthenticationLog, Severity: models.SeverityCritical, Check: checkAuthLogDeviceExists},
		Rule{Name: RuleAuthLogTransactionExists, Entity: models.EntityAuthenticationLog, Severity: models.SeverityCritical, Check: checkAuthLogTransactionExists},
		Rule{Name: RuleAuthLogAttemptsMin, Entity: models.EntityAuthenticationLog, Severity: models.SeverityMedium, Check: checkAuthLogAttemptsMin},
		Rule{Name: RuleAuthLogStatusValid, Entity: models.EntityAuthenticationLog, Severity: models.SeverityHigh, Check: checkAuthLogStatusValid},
	)
}

// uniqueKeyByRule 唯一性规则到索引键的映射，清洗引擎做重复组裁决时使用。
// 主键重复规则（transaction_id/log_id）不在此表：重复副本共用同一记录ID，
// 无法区分保留者，重复组整组隔离
var uniqueKeyByRule = map[string]string{
	RuleCustomerPhoneUnique:        UniqueCustomerPhone,
	RuleCustomerEmailUnique:        UniqueCustomerEmail,
	RuleCustomerTaxIDUnique:        UniqueCustomerTaxID,
	RuleCustomerIDPassportUnique:   UniqueCustomerIDPassport,
	RuleFaceTemplateCustomerUnique: UniqueFaceCustomerID,
	RuleAccountNumberUnique:        UniqueAccountNumber,
	RuleDeviceIdentifierUnique:     UniqueDeviceIdentifier,
}

// UniqueKeyForRule 返回唯一性规则对应的索引键，非唯一性规则返回false
func UniqueKeyForRule(ruleName string) (string, bool) {
	key, ok := uniqueKeyByRule[ruleName]
	return key, ok
}
