/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试数据库和实体数据工厂
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 工厂默认产出通过全部质量规则的纯净记录，测试通过选项函数注入缺陷
 * @dependencies gorm, sqlite, shopspring/decimal, time
 * @refs service/models, service/audit
 */

package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bankdq-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建内存sqlite测试数据库并迁移全部模型
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	err = db.AutoMigrate(
		&models.Customer{},
		&models.FaceTemplate{},
		&models.BankAccount{},
		&models.CustomerDevice{},
		&models.Transaction{},
		&models.AuthenticationLog{},
		&models.PipelineRun{},
		&models.QualityReportRecord{},
		&models.QuarantineRecord{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"authentication_logs",
		"transactions",
		"customer_devices",
		"bank_accounts",
		"face_templates",
		"customers",
		"quarantine_records",
		"quality_reports",
		"pipeline_runs",
	}
	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// BaseTime 工厂记录创建时间的基准，seq按分钟递增避免时间并列
var BaseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// CustomerOption 客户选项函数类型
type CustomerOption func(*models.Customer)

// MakeCustomer 创建纯净客户记录，seq保证批次内唯一字段不冲突
func MakeCustomer(seq int, opts ...CustomerOption) models.Customer {
	email := fmt.Sprintf("user%d@example.com", seq)
	taxID := fmt.Sprintf("01234%05d", seq)
	c := models.Customer{
		CustomerID:              fmt.Sprintf("cus-%04d", seq),
		FullName:                "Nguyễn Văn An",
		DateOfBirth:             time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC),
		PhoneNumber:             fmt.Sprintf("09%08d", seq),
		Email:                   &email,
		TaxIdentificationNumber: &taxID,
		IDPassportNumber:        fmt.Sprintf("0790%08d", seq),
		ResidentialAddress:      "Số 1, Hà Nội",
		RiskScore:               20,
		RiskRating:              models.RiskRatingLow,
		Status:                  "Active",
		CreatedAt:               BaseTime.Add(time.Duration(seq) * time.Minute),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// FaceTemplateOption 人脸模板选项函数类型
type FaceTemplateOption func(*models.FaceTemplate)

// MakeFaceTemplate 创建纯净人脸模板
func MakeFaceTemplate(c models.Customer, seq int, opts ...FaceTemplateOption) models.FaceTemplate {
	f := models.FaceTemplate{
		TemplateID:            fmt.Sprintf("tpl-%04d", seq),
		CustomerID:            c.CustomerID,
		EncryptedFaceEncoding: fmt.Sprintf("enc-%032d", seq),
		CreatedAt:             c.CreatedAt.Add(time.Hour),
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// AccountOption 银行账户选项函数类型
type AccountOption func(*models.BankAccount)

// MakeAccount 创建纯净银行账户，余额恒等式成立
func MakeAccount(c models.Customer, seq int, opts ...AccountOption) models.BankAccount {
	a := models.BankAccount{
		AccountID:               fmt.Sprintf("acc-%04d", seq),
		CustomerID:              c.CustomerID,
		AccountNumber:           fmt.Sprintf("280%015d", seq),
		AccountType:             "Savings",
		Currency:                "VND",
		AvailableBalance:        decimal.NewFromInt(1_000_000),
		HoldAmount:              decimal.NewFromInt(500_000),
		CurrentBalance:          decimal.NewFromInt(1_500_000),
		DailyTransferLimit:      decimal.NewFromInt(100_000_000),
		DailyOnlinePaymentLimit: decimal.NewFromInt(50_000_000),
		Status:                  "Active",
		CreatedAt:               c.CreatedAt.Add(2 * time.Hour),
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// DeviceOption 客户设备选项函数类型
type DeviceOption func(*models.CustomerDevice)

// MakeDevice 创建纯净客户设备
func MakeDevice(c models.Customer, seq int, opts ...DeviceOption) models.CustomerDevice {
	d := models.CustomerDevice{
		DeviceID:         fmt.Sprintf("dev-%04d", seq),
		DeviceIdentifier: fmt.Sprintf("IMEI:%015d", seq),
		CustomerID:       c.CustomerID,
		DeviceType:       "Mobile",
		IsTrusted:        true,
		Status:           "Active",
		CreatedAt:        c.CreatedAt.Add(3 * time.Hour),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// TransactionOption 交易选项函数类型
type TransactionOption func(*models.Transaction)

// MakeTransaction 创建纯净交易（小额行内转账，基础认证）
func MakeTransaction(a models.BankAccount, seq int, opts ...TransactionOption) models.Transaction {
	recipient := fmt.Sprintf("280%015d", 900000+seq)
	t := models.Transaction{
		TransactionID:          fmt.Sprintf("txn-%04d", seq),
		AccountID:              a.AccountID,
		TransactionType:        models.TxnInternalTransfer,
		Amount:                 decimal.NewFromInt(100_000),
		Fee:                    decimal.NewFromInt(500),
		Currency:               "VND",
		AuthenticationMethod:   "PIN",
		RecipientAccountNumber: &recipient,
		Status:                 "Completed",
		FraudScore:             5,
		CreatedAt:              a.CreatedAt.Add(4 * time.Hour),
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// AuthLogOption 认证日志选项函数类型
type AuthLogOption func(*models.AuthenticationLog)

// MakeAuthLog 创建纯净认证日志（登录场景，不关联设备和交易）
func MakeAuthLog(c models.Customer, seq int, opts ...AuthLogOption) models.AuthenticationLog {
	l := models.AuthenticationLog{
		LogID:              fmt.Sprintf("log-%04d", seq),
		CustomerID:         c.CustomerID,
		AuthenticationType: "Login",
		Status:             "Success",
		AttemptCount:       1,
		CreatedAt:          c.CreatedAt.Add(5 * time.Hour),
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// NewCleanBatch 创建n个客户的纯净批次，每个客户带人脸模板、
// 账户、设备、一笔交易和关联该交易与设备的认证日志
func NewCleanBatch(n int) *models.Batch {
	batch := models.NewBatch()
	for i := 1; i <= n; i++ {
		customer := MakeCustomer(i)
		account := MakeAccount(customer, i)
		device := MakeDevice(customer, i)
		txn := MakeTransaction(account, i)

		log := MakeAuthLog(customer, i, func(l *models.AuthenticationLog) {
			l.DeviceIdentifier = &device.DeviceIdentifier
			l.TransactionID = &txn.TransactionID
			l.AuthenticationType = txn.AuthenticationMethod
		})

		batch.Customers = append(batch.Customers, customer)
		batch.FaceTemplates = append(batch.FaceTemplates, MakeFaceTemplate(customer, i))
		batch.BankAccounts = append(batch.BankAccounts, account)
		batch.CustomerDevices = append(batch.CustomerDevices, device)
		batch.Transactions = append(batch.Transactions, txn)
		batch.AuthenticationLogs = append(batch.AuthenticationLogs, log)
	}
	return batch
}
