/*
 * @module service/audit/rules_uniqueness
 * @description 唯一性规则族：重复组内的每条记录都被报告，可选字段为空时豁免
 * @architecture 分层架构 - 审计服务层
 * @rules 全部为Critical级别；观测值填重复的字段值，供清洗引擎按组裁决
 * @dependencies bankdq-service/service/models
 * @refs service/audit/index.go
 */

package audit

import (
	"fmt"

	"bankdq-service/service/models"
)

func duplicateViolation(field, value string, count int) []models.Violation {
	return []models.Violation{{
		Fields:        []string{field},
		Message:       fmt.Sprintf("字段 %s 的值在批次内重复出现 %d 次", field, count),
		ObservedValue: value,
	}}
}

func checkCustomerPhoneUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.PhoneNumber == "" {
		return nil
	}
	if members := idx.UniqueGroup(UniqueCustomerPhone, c.PhoneNumber); len(members) > 1 {
		return duplicateViolation("phone_number", c.PhoneNumber, len(members))
	}
	return nil
}

func checkCustomerEmailUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.Email == nil || *c.Email == "" {
		return nil
	}
	if members := idx.UniqueGroup(UniqueCustomerEmail, *c.Email); len(members) > 1 {
		return duplicateViolation("email", *c.Email, len(members))
	}
	return nil
}

func checkCustomerTaxIDUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.TaxIdentificationNumber == nil || *c.TaxIdentificationNumber == "" {
		return nil
	}
	if members := idx.UniqueGroup(UniqueCustomerTaxID, *c.TaxIdentificationNumber); len(members) > 1 {
		return duplicateViolation("tax_identification_number", *c.TaxIdentificationNumber, len(members))
	}
	return nil
}

func checkCustomerIDPassportUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	c := rec.(models.Customer)
	if c.IDPassportNumber == "" {
		return nil
	}
	if members := idx.UniqueGroup(UniqueCustomerIDPassport, c.IDPassportNumber); len(members) > 1 {
		return duplicateViolation("id_passport_number", c.IDPassportNumber, len(members))
	}
	return nil
}

// checkFaceTemplateCustomerUnique 同一客户最多一份人脸模板；
// 客户不存在的模板不参与本规则，由引用完整性规则报告
func checkFaceTemplateCustomerUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	f := rec.(models.FaceTemplate)
	if f.CustomerID == "" || !idx.HasCustomer(f.CustomerID) {
		return nil
	}
	if members := idx.UniqueGroup(UniqueFaceCustomerID, f.CustomerID); len(members) > 1 {
		return duplicateViolation("customer_id", f.CustomerID, len(members))
	}
	return nil
}

func checkAccountNumberUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	if a.AccountNumber == "" {
		return nil
	}
	if members := idx.UniqueGroup(UniqueAccountNumber, a.AccountNumber); len(members) > 1 {
		return duplicateViolation("account_number", a.AccountNumber, len(members))
	}
	return nil
}

// checkTransactionIDUnique 交易主键重复意味着两条物理记录共用同一身份，
// 无法裁决保留者，重复组全部隔离
func checkTransactionIDUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	t := rec.(models.Transaction)
	if t.TransactionID == "" {
		return nil
	}
	if members := idx.UniqueGroup(UniqueTransactionID, t.TransactionID); len(members) > 1 {
		return duplicateViolation("transaction_id", t.TransactionID, len(members))
	}
	return nil
}

func checkAuthLogIDUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	l := rec.(models.AuthenticationLog)
	if l.LogID == "" {
		return nil
	}
	if members := idx.UniqueGroup(UniqueAuthLogID, l.LogID); len(members) > 1 {
		return duplicateViolation("log_id", l.LogID, len(members))
	}
	return nil
}

func checkDeviceIdentifierUnique(rec models.Record, idx *BatchIndex) []models.Violation {
	d := rec.(models.CustomerDevice)
	if d.DeviceIdentifier == "" {
		return nil
	}
	if members := idx.UniqueGroup(UniqueDeviceIdentifier, d.DeviceIdentifier); len(members) > 1 {
		return duplicateViolation("device_identifier", d.DeviceIdentifier, len(members))
	}
	return nil
}
