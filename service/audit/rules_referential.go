/*
 * @module service/audit/rules_referential
 * @description 引用完整性规则族：外键在批次内必须可解析，认证日志的设备/交易引用为可选、填了才检查
 * @architecture 分层架构 - 审计服务层
 * @rules 悬空外键一律Critical；认证日志通过device_identifier关联设备而非设备主键
 * @dependencies bankdq-service/service/models
 * @refs service/audit/index.go
 */

package audit

import (
	"fmt"

	"bankdq-service/service/models"
)

func danglingViolation(field, value, parent string) []models.Violation {
	return []models.Violation{{
		Fields:        []string{field},
		Message:       fmt.Sprintf("引用的%s在批次内不存在", parent),
		ObservedValue: value,
	}}
}

func checkFaceTemplateCustomerExists(rec models.Record, idx *BatchIndex) []models.Violation {
	f := rec.(models.FaceTemplate)
	if f.CustomerID == "" || idx.HasCustomer(f.CustomerID) {
		return nil
	}
	return danglingViolation("customer_id", f.CustomerID, "客户")
}

func checkAccountCustomerExists(rec models.Record, idx *BatchIndex) []models.Violation {
	a := rec.(models.BankAccount)
	if a.CustomerID == "" || idx.HasCustomer(a.CustomerID) {
		return nil
	}
	return danglingViolation("customer_id", a.CustomerID, "客户")
}

func checkDeviceCustomerExists(rec models.Record, idx *BatchIndex) []models.Violation {
	d := rec.(models.CustomerDevice)
	if d.CustomerID == "" || idx.HasCustomer(d.CustomerID) {
		return nil
	}
	return danglingViolation("customer_id", d.CustomerID, "客户")
}

func checkTransactionAccountExists(rec models.Record, idx *BatchIndex) []models.Violation {
	t := rec.(models.Transaction)
	if t.AccountID == "" || idx.HasAccount(t.AccountID) {
		return nil
	}
	return danglingViolation("account_id", t.AccountID, "银行账户")
}

func checkAuthLogCustomerExists(rec models.Record, idx *BatchIndex) []models.Violation {
	l := rec.(models.AuthenticationLog)
	if l.CustomerID == "" || idx.HasCustomer(l.CustomerID) {
		return nil
	}
	return danglingViolation("customer_id", l.CustomerID, "客户")
}

func checkAuthLogDeviceExists(rec models.Record, idx *BatchIndex) []models.Violation {
	l := rec.(models.AuthenticationLog)
	if l.DeviceIdentifier == nil || *l.DeviceIdentifier == "" || idx.HasDevice(*l.DeviceIdentifier) {
		return nil
	}
	return danglingViolation("device_identifier", *l.DeviceIdentifier, "客户设备")
}

func checkAuthLogTransactionExists(rec models.Record, idx *BatchIndex) []models.Violation {
	l := rec.(models.AuthenticationLog)
	if l.TransactionID == nil || *l.TransactionID == "" || idx.HasTransaction(*l.TransactionID) {
		return nil
	}
	return danglingViolation("transaction_id", *l.TransactionID, "交易")
}
