/*
 * @module service/audit/rules_format
 * @description 格式规则族：必填字段、枚举取值和越南银行业务格式（CCCD、护照、手机号、税号、BVBank账号、设备标识）
 * @architecture 分层架构 - 审计服务层
 * @rules 可选字段为空时豁免格式检查；格式校验使用预编译正则
 * @dependencies bankdq-service/service/models, regexp
 * @refs service/audit/catalog.go, service/remediation/fixes.go
 */

package audit

import (
	"fmt"
	"regexp"

	"bankdq-service/service/models"
)

var (
	// CCCD 12位数字；护照 1大写字母+7位数字
	cccdPattern     = regexp.MustCompile(`^\d{12}$`)
	passportPattern = regexp.MustCompile(`^[A-Z]\d{7}$`)

	// 越南手机号：09/08/07/05/03开头共10位
	phonePattern = regexp.MustCompile(`^(09|08|07|05|03)\d{8}$`)

	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	// 税号 10-13位数字
	taxIDPattern = regexp.MustCompile(`^\d{10,13}$`)

	// BVBank账号：280开头共18位数字
	accountNumberPattern = regexp.MustCompile(`^280\d{15}$`)

	deviceIdentifierPattern = regexp.MustCompile(`^(IMEI|MAC|UUID|ANDROID_ID):[A-Za-z0-9:-]+$`)
)

// IsValidPhone 越南手机号格式
func IsValidPhone(s string) bool { return phonePattern.MatchString(s) }

// IsValidEmail 邮箱格式
func IsValidEmail(s string) bool { return emailPattern.MatchString(s) }

// IsValidTaxID 税号格式
func IsValidTaxID(s string) bool { return taxIDPattern.MatchString(s) }

// IsValidIDPassport CCCD或护照格式
func IsValidIDPassport(s string) bool {
	return cccdPattern.MatchString(s) || passportPattern.MatchString(s)
}

func missingViolation(fields []string) []models.Violation {
	return []models.Violation{{
		Fields:  fields,
		Message: fmt.Sprintf("必填字段缺失: %v", fields),
	}}
}

func formatViolation(field, value, expected string) []models.Violation {
	return []models.Violation{{
		Fields:        []string{field},
		Message:       fmt.Sprintf("字段 %s 不符合格式要求: %s", field, expected),
		ObservedValue: value,
	}}
}

func enumViolation(field, value string, allowed []string) []models.Violation {
	return []models.Violation{{
		Fields:        []string{field},
		Message:       fmt.Sprintf("字段 %s 取值非法，允许值: %v", field, allowed),
		ObservedValue: value,
	}}
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// --- 客户 ---

func checkCustomerRequiredFields(rec models.Record, _ *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	var missing []string
	if c.FullName == "" {
		missing = append(missing, "full_name")
	}
	if c.DateOfBirth.IsZero() {
		missing = append(missing, "date_of_birth")
	}
	if c.PhoneNumber == "" {
		missing = append(missing, "phone_number")
	}
	if c.IDPassportNumber == "" {
		missing = append(missing, "id_passport_number")
	}
	if c.ResidentialAddress == "" {
		missing = append(missing, "residential_address")
	}
	if c.RiskRating == "" {
		missing = append(missing, "risk_rating")
	}
	if c.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) == 0 {
		return nil
	}
	return missingViolation(missing)
}

func checkCustomerPhoneFormat(rec models.Record, _ *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.PhoneNumber == "" || IsValidPhone(c.PhoneNumber) {
		return nil
	}
	return formatViolation("phone_number", c.PhoneNumber, "09/08/07/05/03开头的10位数字")
}

func checkCustomerEmailFormat(rec models.Record, _ *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.Email == nil || *c.Email == "" || IsValidEmail(*c.Email) {
		return nil
	}
	return formatViolation("email", *c.Email, "标准邮箱格式")
}

func checkCustomerTaxIDFormat(rec models.Record, _ *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.TaxIdentificationNumber == nil || *c.TaxIdentificationNumber == "" || IsValidTaxID(*c.TaxIdentificationNumber) {
		return nil
	}
	return formatViolation("tax_identification_number", *c.TaxIdentificationNumber, "10-13位数字")
}

func checkCustomerIDPassportFormat(rec models.Record, _ *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.IDPassportNumber == "" || IsValidIDPassport(c.IDPassportNumber) {
		return nil
	}
	return formatViolation("id_passport_number", c.IDPassportNumber, "12位CCCD或1大写字母+7位数字护照号")
}

func checkCustomerStatusValid(rec models.Record, _ *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.Status == "" || contains(models.CustomerStatuses, c.Status) {
		return nil
	}
	return enumViolation("status", c.Status, models.CustomerStatuses)
}

// --- 人脸模板 ---

func checkFaceTemplateRequiredFields(rec models.Record, _ *BatchIndex) []models.Violation {
	f := rec.(models.FaceTemplate)
	var missing []string
	if f.CustomerID == "" {
		missing = append(missing, "customer_id")
	}
	if f.EncryptedFaceEncoding == "" {
		missing = append(missing, "encrypted_face_encoding")
	}
	if len(missing) == 0 {
		return nil
	}
	return missingViolation(missing)
}

// --- 银行账户 ---

func checkAccountRequiredFields(rec models.Record, _ *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	var missing []string
	if a.CustomerID == "" {
		missing = append(missing, "customer_id")
	}
	if a.AccountNumber == "" {
		missing = append(missing, "account_number")
	}
	if a.AccountType == "" {
		missing = append(missing, "account_type")
	}
	if a.Currency == "" {
		missing = append(missing, "currency")
	}
	if len(missing) == 0 {
		return nil
	}
	return missingViolation(missing)
}

func checkAccountNumberFormat(rec models.Record, _ *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	if a.AccountNumber == "" || accountNumberPattern.MatchString(a.AccountNumber) {
		return nil
	}
	return formatViolation("account_number", a.AccountNumber, "280开头的18位数字")
}

func checkAccountTypeValid(rec models.Record, _ *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	if a.AccountType == "" || contains(models.AccountTypes, a.AccountType) {
		return nil
	}
	return enumViolation("account_type", a.AccountType, models.AccountTypes)
}

func checkAccountCurrencyValid(rec models.Record, _ *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	if a.Currency == "" || contains(models.Currencies, a.Currency) {
		return nil
	}
	return enumViolation("currency", a.Currency, models.Currencies)
}

// --- 客户设备 ---

func checkDeviceRequiredFields(rec models.Record, _ *BatchIndex) []models.Violation {
	d := rec.(models.CustomerDevice)
	var missing []string
	if d.CustomerID == "" {
		missing = append(missing, "customer_id")
	}
	if d.DeviceIdentifier == "" {
		missing = append(missing, "device_identifier")
	}
	if d.DeviceType == "" {
		missing = append(missing, "device_type")
	}
	if d.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) == 0 {
		return nil
	}
	return missingViolation(missing)
}

func checkDeviceIdentifierFormat(rec models.Record, _ *BatchIndex) []models.Violation {
	d := rec.(models.CustomerDevice)
	if d.DeviceIdentifier == "" || deviceIdentifierPattern.MatchString(d.DeviceIdentifier) {
		return nil
	}
	return formatViolation("device_identifier", d.DeviceIdentifier, "IMEI:/MAC:/UUID:/ANDROID_ID:前缀加合法字符")
}

func checkDeviceTypeValid(rec models.Record, _ *BatchIndex) []models.Violation {
	d := rec.(models.CustomerDevice)
	if d.DeviceType == "" || contains(models.DeviceTypes, d.DeviceType) {
		return nil
	}
	return enumViolation("device_type", d.DeviceType, models.DeviceTypes)
}

func checkDeviceStatusValid(rec models.Record, _ *BatchIndex) []models.Violation {
	d := rec.(models.CustomerDevice)
	if d.Status == "" || contains(models.DeviceStatuses, d.Status) {
		return nil
	}
	return enumViolation("status", d.Status, models.DeviceStatuses)
}

// --- 交易 ---

func checkTransactionRequiredFields(rec models.Record, _ *BatchIndex) []models.Violation {
	t := rec.(models.Transaction)
	var missing []string
	if t.AccountID == "" {
		missing = append(missing, "account_id")
	}
	if t.TransactionType == "" {
		missing = append(missing, "transaction_type")
	}
	if t.Currency == "" {
		missing = append(missing, "currency")
	}
	if t.AuthenticationMethod == "" {
		missing = append(missing, "authentication_method")
	}
	if len(missing) == 0 {
		return nil
	}
	return missingViolation(missing)
}

// --- 认证日志 ---

func checkAuthLogRequiredFields(rec models.Record, _ *BatchIndex) []models.Violation {
	l := rec.(models.AuthenticationLog)
	var missing []string
	if l.CustomerID == "" {
		missing = append(missing, "customer_id")
	}
	if l.AuthenticationType == "" {
		missing = append(missing, "authentication_type")
	}
	if l.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) == 0 {
		return nil
	}
	return missingViolation(missing)
}

func checkAuthLogStatusValid(rec models.Record, _ *BatchIndex) []models.Violation {
	l := rec.(models.AuthenticationLog)
	if l.Status == "" || contains(models.AuthLogStatuses, l.Status) {
		return nil
	}
	return enumViolation("status", l.Status, models.AuthLogStatuses)
}
