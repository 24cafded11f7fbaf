/*
 * @module service/models/entities
 * @description 越南银行合成数据实体模型，包含客户、人脸模板、银行账户、客户设备、交易、认证日志六类实体
 * @architecture 数据模型层
 * @documentReference ai_docs/banking_data_model.md
 * @stateFlow 数据生成 -> 质量审计 -> 清洗修复 -> 入库存储
 * @rules 实体字段与数据库schema保持一致，金额字段统一使用decimal避免浮点误差
 * @dependencies gorm.io/gorm, github.com/shopspring/decimal
 * @refs service/audit, service/generator, service/storage
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType 实体类型
type EntityType string

const (
	EntityCustomer          EntityType = "customer"
	EntityFaceTemplate      EntityType = "face_template"
	EntityBankAccount       EntityType = "bank_account"
	EntityCustomerDevice    EntityType = "customer_device"
	EntityTransaction       EntityType = "transaction"
	EntityAuthenticationLog EntityType = "authentication_log"
)

// EntityTypes 实体类型的固定遍历顺序（父实体在前，保证审计和级联处理的确定性）
var EntityTypes = []EntityType{
	EntityCustomer,
	EntityFaceTemplate,
	EntityBankAccount,
	EntityCustomerDevice,
	EntityTransaction,
	EntityAuthenticationLog,
}

// 客户风险等级
const (
	RiskRatingLow    = "Low"
	RiskRatingMedium = "Medium"
	RiskRatingHigh   = "High"
)

// 客户状态
var CustomerStatuses = []string{"Active", "Inactive", "Suspended", "Closed"}

// 账户类型
var AccountTypes = []string{"Savings", "Current", "Fixed_Deposit", "Loan"}

// 币种
var Currencies = []string{"VND", "USD", "EUR"}

// 交易类型
const (
	TxnInternalTransfer = "Internal_Transfer"
	TxnExternalTransfer = "External_Transfer"
	TxnBillPayment      = "Bill_Payment"
)

var TransactionTypes = []string{TxnInternalTransfer, TxnExternalTransfer, TxnBillPayment}

// 设备类型与状态
var (
	DeviceTypes    = []string{"Mobile", "Desktop", "Tablet"}
	DeviceStatuses = []string{"Active", "Blocked", "Expired"}
)

// 认证日志状态
var AuthLogStatuses = []string{"Success", "Failed", "Blocked", "Timeout"}

// 强认证方式（2345/QĐ-NHNN 2023要求，金额>=10M VND的交易必须使用）
var StrongAuthMethods = []string{"PIN_OTP", "PIN_OTP_Biometric"}

// Record 批次内记录的统一只读视图，供规则引擎按实体类型分派
type Record interface {
	RecordID() string
	EntityKind() EntityType
	CreatedTime() time.Time
}

// Customer 客户实体
type Customer struct {
	CustomerID              string     `gorm:"type:varchar(50);primaryKey" json:"customer_id"`
	FullName                string     `gorm:"type:varchar(200)" json:"full_name"`
	DateOfBirth             time.Time  `gorm:"type:date" json:"date_of_birth"`
	PhoneNumber             string     `gorm:"type:varchar(20);uniqueIndex" json:"phone_number"`
	Email                   *string    `gorm:"type:varchar(200)" json:"email,omitempty"`
	TaxIdentificationNumber *string    `gorm:"type:varchar(20)" json:"tax_identification_number,omitempty"`
	IDPassportNumber        string     `gorm:"type:varchar(20);uniqueIndex" json:"id_passport_number"`
	ResidentialAddress      string     `gorm:"type:text" json:"residential_address"`
	RiskScore               float64    `json:"risk_score"`
	RiskRating              string     `gorm:"type:varchar(10)" json:"risk_rating"`
	Status                  string     `gorm:"type:varchar(20)" json:"status"`
	KYCCompletedAt          *time.Time `json:"kyc_completed_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

func (Customer) TableName() string { return "customers" }

func (c Customer) RecordID() string       { return c.CustomerID }
func (c Customer) EntityKind() EntityType { return EntityCustomer }
func (c Customer) CreatedTime() time.Time { return c.CreatedAt }

// FaceTemplate 人脸模板实体，每个客户恰好一条
type FaceTemplate struct {
	TemplateID            string    `gorm:"type:varchar(50);primaryKey" json:"template_id"`
	CustomerID            string    `gorm:"type:varchar(50);uniqueIndex" json:"customer_id"`
	EncryptedFaceEncoding string    `gorm:"type:text" json:"encrypted_face_encoding"`
	CreatedAt             time.Time `json:"created_at"`
}

func (FaceTemplate) TableName() string { return "face_templates" }

func (f FaceTemplate) RecordID() string       { return f.TemplateID }
func (f FaceTemplate) EntityKind() EntityType { return EntityFaceTemplate }
func (f FaceTemplate) CreatedTime() time.Time { return f.CreatedAt }

// BankAccount 银行账户实体，余额恒等式 current_balance = available_balance + hold_amount
type BankAccount struct {
	AccountID               string          `gorm:"type:varchar(50);primaryKey" json:"account_id"`
	CustomerID              string          `gorm:"type:varchar(50);index" json:"customer_id"`
	AccountNumber           string          `gorm:"type:varchar(20);uniqueIndex" json:"account_number"`
	AccountType             string          `gorm:"type:varchar(20)" json:"account_type"`
	Currency                string          `gorm:"type:varchar(3)" json:"currency"`
	AvailableBalance        decimal.Decimal `gorm:"type:numeric(18,2)" json:"available_balance"`
	HoldAmount              decimal.Decimal `gorm:"type:numeric(18,2)" json:"hold_amount"`
	CurrentBalance          decimal.Decimal `gorm:"type:numeric(18,2)" json:"current_balance"`
	DailyTransferLimit      decimal.Decimal `gorm:"type:numeric(18,2)" json:"daily_transfer_limit"`
	DailyOnlinePaymentLimit decimal.Decimal `gorm:"type:numeric(18,2)" json:"daily_online_payment_limit"`
	Status                  string          `gorm:"type:varchar(20)" json:"status"`
	CreatedAt               time.Time       `json:"created_at"`
}

func (BankAccount) TableName() string { return "bank_accounts" }

func (a BankAccount) RecordID() string       { return a.AccountID }
func (a BankAccount) EntityKind() EntityType { return EntityBankAccount }
func (a BankAccount) CreatedTime() time.Time { return a.CreatedAt }

// CustomerDevice 客户设备实体
type CustomerDevice struct {
	DeviceID         string    `gorm:"type:varchar(50);primaryKey" json:"device_id"`
	DeviceIdentifier string    `gorm:"type:varchar(100);uniqueIndex" json:"device_identifier"`
	CustomerID       string    `gorm:"type:varchar(50);index" json:"customer_id"`
	DeviceType       string    `gorm:"type:varchar(20)" json:"device_type"`
	IsTrusted        bool      `json:"is_trusted"`
	Status           string    `gorm:"type:varchar(20)" json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func (CustomerDevice) TableName() string { return "customer_devices" }

func (d CustomerDevice) RecordID() string       { return d.DeviceID }
func (d CustomerDevice) EntityKind() EntityType { return EntityCustomerDevice }
func (d CustomerDevice) CreatedTime() time.Time { return d.CreatedAt }

// Transaction 交易实体，交易类型决定收款方/账单字段的必填与禁填组合
type Transaction struct {
	TransactionID          string          `gorm:"type:varchar(50);primaryKey" json:"transaction_id"`
	AccountID              string          `gorm:"type:varchar(50);index" json:"account_id"`
	TransactionType        string          `gorm:"type:varchar(30)" json:"transaction_type"`
	Amount                 decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount"`
	Fee                    decimal.Decimal `gorm:"type:numeric(18,2)" json:"fee"`
	Currency               string          `gorm:"type:varchar(3)" json:"currency"`
	AuthenticationMethod   string          `gorm:"type:varchar(30)" json:"authentication_method"`
	RecipientAccountNumber *string         `gorm:"type:varchar(30)" json:"recipient_account_number,omitempty"`
	RecipientBankCode      *string         `gorm:"type:varchar(20)" json:"recipient_bank_code,omitempty"`
	ServiceProviderCode    *string         `gorm:"type:varchar(20)" json:"service_provider_code,omitempty"`
	BillNumber             *string         `gorm:"type:varchar(30)" json:"bill_number,omitempty"`
	Status                 string          `gorm:"type:varchar(20)" json:"status"`
	IsSuspicious           bool            `json:"is_suspicious"`
	FraudScore             float64         `json:"fraud_score"`
	CreatedAt              time.Time       `json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

func (t Transaction) RecordID() string       { return t.TransactionID }
func (t Transaction) EntityKind() EntityType { return EntityTransaction }
func (t Transaction) CreatedTime() time.Time { return t.CreatedAt }

// AuthenticationLog 认证日志实体，可选关联设备和交易
type AuthenticationLog struct {
	LogID              string    `gorm:"type:varchar(50);primaryKey" json:"log_id"`
	CustomerID         string    `gorm:"type:varchar(50);index" json:"customer_id"`
	DeviceIdentifier   *string   `gorm:"type:varchar(100)" json:"device_identifier,omitempty"`
	TransactionID      *string   `gorm:"type:varchar(50)" json:"transaction_id,omitempty"`
	AuthenticationType string    `gorm:"type:varchar(30)" json:"authentication_type"`
	Status             string    `gorm:"type:varchar(20)" json:"status"`
	AttemptCount       int       `json:"attempt_count"`
	CreatedAt          time.Time `json:"created_at"`
}

func (AuthenticationLog) TableName() string { return "authentication_logs" }

func (l AuthenticationLog) RecordID() string       { return l.LogID }
func (l AuthenticationLog) EntityKind() EntityType { return EntityAuthenticationLog }
func (l AuthenticationLog) CreatedTime() time.Time { return l.CreatedAt }

// Batch 一次运行处理的完整批次，六个实体集合
type Batch struct {
	Customers          []Customer          `json:"customers"`
	FaceTemplates      []FaceTemplate      `json:"face_templates"`
	BankAccounts       []BankAccount       `json:"bank_accounts"`
	CustomerDevices    []CustomerDevice    `json:"customer_devices"`
	Transactions       []Transaction       `json:"transactions"`
	AuthenticationLogs []AuthenticationLog `json:"authentication_logs"`
}

// NewBatch 创建空批次
func NewBatch() *Batch {
	return &Batch{}
}

// TotalRecords 批次内记录总数
func (b *Batch) TotalRecords() int {
	return len(b.Customers) + len(b.FaceTemplates) + len(b.BankAccounts) +
		len(b.CustomerDevices) + len(b.Transactions) + len(b.AuthenticationLogs)
}

// CountByEntity 按实体类型统计记录数
func (b *Batch) CountByEntity() map[EntityType]int {
	return map[EntityType]int{
		EntityCustomer:          len(b.Customers),
		EntityFaceTemplate:      len(b.FaceTemplates),
		EntityBankAccount:       len(b.BankAccounts),
		EntityCustomerDevice:    len(b.CustomerDevices),
		EntityTransaction:       len(b.Transactions),
		EntityAuthenticationLog: len(b.AuthenticationLogs),
	}
}

// Records 按实体类型返回记录的只读视图，顺序与集合内顺序一致
func (b *Batch) Records(entity EntityType) []Record {
	switch entity {
	case EntityCustomer:
		records := make([]Record, len(b.Customers))
		for i, r := range b.Customers {
			records[i] = r
		}
		return records
	case EntityFaceTemplate:
		records := make([]Record, len(b.FaceTemplates))
		for i, r := range b.FaceTemplates {
			records[i] = r
		}
		return records
	case EntityBankAccount:
		records := make([]Record, len(b.BankAccounts))
		for i, r := range b.BankAccounts {
			records[i] = r
		}
		return records
	case EntityCustomerDevice:
		records := make([]Record, len(b.CustomerDevices))
		for i, r := range b.CustomerDevices {
			records[i] = r
		}
		return records
	case EntityTransaction:
		records := make([]Record, len(b.Transactions))
		for i, r := range b.Transactions {
			records[i] = r
		}
		return records
	case EntityAuthenticationLog:
		records := make([]Record, len(b.AuthenticationLogs))
		for i, r := range b.AuthenticationLogs {
			records[i] = r
		}
		return records
	}
	return nil
}

// Clone 深拷贝批次，清洗引擎在副本上工作，原批次保持只读
func (b *Batch) Clone() *Batch {
	clone := &Batch{
		Customers:          append([]Customer(nil), b.Customers...),
		FaceTemplates:      append([]FaceTemplate(nil), b.FaceTemplates...),
		BankAccounts:       append([]BankAccount(nil), b.BankAccounts...),
		CustomerDevices:    append([]CustomerDevice(nil), b.CustomerDevices...),
		Transactions:       append([]Transaction(nil), b.Transactions...),
		AuthenticationLogs: append([]AuthenticationLog(nil), b.AuthenticationLogs...),
	}
	return clone
}

// Replace 按实体类型替换单条记录，清洗引擎应用修复结果时使用
func (b *Batch) Replace(rec Record) {
	switch r := rec.(type) {
	case Customer:
		for i := range b.Customers {
			if b.Customers[i].CustomerID == r.CustomerID {
				b.Customers[i] = r
				return
			}
		}
	case FaceTemplate:
		for i := range b.FaceTemplates {
			if b.FaceTemplates[i].TemplateID == r.TemplateID {
				b.FaceTemplates[i] = r
				return
			}
		}
	case BankAccount:
		for i := range b.BankAccounts {
			if b.BankAccounts[i].AccountID == r.AccountID {
				b.BankAccounts[i] = r
				return
			}
		}
	case CustomerDevice:
		for i := range b.CustomerDevices {
			if b.CustomerDevices[i].DeviceID == r.DeviceID {
				b.CustomerDevices[i] = r
				return
			}
		}
	case Transaction:
		for i := range b.Transactions {
			if b.Transactions[i].TransactionID == r.TransactionID {
				b.Transactions[i] = r
				return
			}
		}
	case AuthenticationLog:
		for i := range b.AuthenticationLogs {
			if b.AuthenticationLogs[i].LogID == r.LogID {
				b.AuthenticationLogs[i] = r
				return
			}
		}
	}
}
