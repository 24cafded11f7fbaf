/*
 * @module service/generator/generator
 * @description 越南银行合成数据生成器：种子驱动的确定性批次生成，支持按比例注入缺陷供质量流水线演练
 * @architecture 分层架构 - 数据生成层
 * @documentReference ai_docs/banking_data_model.md
 * @stateFlow 配置(种子/规模/缺陷率) -> 客户及下游实体生成 -> 缺陷注入 -> 批次
 * @rules 同一种子产出完全相同的批次；缺陷率为0时批次必须通过全部质量规则
 * @dependencies bankdq-service/service/models, github.com/google/uuid, github.com/shopspring/decimal
 * @refs service/pipeline, service/audit
 */

package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankdq-service/service/models"
)

// Config 生成器配置
type Config struct {
	Seed          int64   // 随机种子，相同种子产出相同批次
	CustomerCount int     // 客户数量，下游实体规模随之推导
	DefectRate    float64 // 缺陷注入比例 [0,1]，0表示纯净批次
}

// DefaultConfig 默认配置：100个客户，无缺陷
func DefaultConfig() Config {
	return Config{Seed: 1, CustomerCount: 100}
}

// Generator 合成数据生成器
type Generator struct {
	cfg Config
}

// New 创建生成器
func New(cfg Config) *Generator {
	if cfg.CustomerCount <= 0 {
		cfg.CustomerCount = DefaultConfig().CustomerCount
	}
	return &Generator{cfg: cfg}
}

// 越南常见姓名
var (
	familyNames = []string{"Nguyễn", "Trần", "Lê", "Phạm", "Hoàng", "Phan", "Vũ", "Đặng", "Bùi", "Đỗ"}
	middleNames = []string{"Văn", "Thị", "Đức", "Minh", "Ngọc", "Thanh", "Quang", "Hữu"}
	givenNames  = []string{"An", "Bình", "Châu", "Dũng", "Giang", "Hà", "Hùng", "Khánh", "Lan", "Linh", "Mai", "Nam", "Phương", "Quân", "Sơn", "Thảo", "Trang", "Tuấn"}

	cities = []string{"Hà Nội", "TP. Hồ Chí Minh", "Đà Nẵng", "Hải Phòng", "Cần Thơ", "Biên Hòa", "Nha Trang", "Huế"}

	phonePrefixes = []string{"09", "08", "07", "05", "03"}
	emailDomains  = []string{"gmail.com", "yahoo.com", "outlook.com", "bvbank.net.vn"}

	bankCodes     = []string{"VCB", "TCB", "MBB", "ACB", "VPB", "BIDV"}
	providerCodes = []string{"EVN", "VNPT", "VIETTEL", "SAWACO"}

	basicAuthMethods = []string{"PIN", "Password", "Biometric"}
)

// builder 单次生成的内部状态
type builder struct {
	rng    *rand.Rand
	anchor time.Time
	batch  *models.Batch

	usedPhones   map[string]bool
	usedIDs      map[string]bool
	usedAccounts map[string]bool
	usedDevices  map[string]bool

	// 客户到其设备标识的映射，认证日志关联用
	devicesByCustomer map[string][]string

	// 客户+日期到非强认证VND交易累计的映射，日累计达到20M需强认证，
	// 生成时将超出部分顺延到次日
	dailyBasicTotals map[string]decimal.Decimal
	emailSeq         int
}

// Generate 生成一个批次。生成顺序固定（客户->模板->账户->设备->交易->日志），
// 保证相同种子下批次字节级一致
func (g *Generator) Generate() *models.Batch {
	b := &builder{
		rng:               rand.New(rand.NewSource(g.cfg.Seed)),
		anchor:            time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		batch:             models.NewBatch(),
		usedPhones:        make(map[string]bool),
		usedIDs:           make(map[string]bool),
		usedAccounts:      make(map[string]bool),
		usedDevices:       make(map[string]bool),
		devicesByCustomer: make(map[string][]string),
		dailyBasicTotals:  make(map[string]decimal.Decimal),
	}

	for i := 0; i < g.cfg.CustomerCount; i++ {
		customer := b.newCustomer()
		b.batch.Customers = append(b.batch.Customers, customer)
		b.batch.FaceTemplates = append(b.batch.FaceTemplates, b.newFaceTemplate(customer))

		deviceCount := 1 + b.rng.Intn(2)
		for d := 0; d < deviceCount; d++ {
			b.batch.CustomerDevices = append(b.batch.CustomerDevices, b.newDevice(customer))
		}

		accountCount := 1 + b.rng.Intn(2)
		for a := 0; a < accountCount; a++ {
			account := b.newAccount(customer)
			b.batch.BankAccounts = append(b.batch.BankAccounts, account)

			txnCount := b.rng.Intn(4)
			for t := 0; t < txnCount; t++ {
				txn := b.newTransaction(account)
				b.batch.Transactions = append(b.batch.Transactions, txn)
				b.batch.AuthenticationLogs = append(b.batch.AuthenticationLogs, b.newAuthLog(customer, &txn))
			}
		}

		// 部分客户产生纯登录日志（不关联交易）
		if b.rng.Float64() < 0.5 {
			b.batch.AuthenticationLogs = append(b.batch.AuthenticationLogs, b.newAuthLog(customer, nil))
		}
	}

	if g.cfg.DefectRate > 0 {
		injectDefects(b.batch, g.cfg.DefectRate, b.rng)
	}

	return b.batch
}

// newID 从种子随机流派生伪UUID，保证确定性
func (b *builder) newID() string {
	var buf [16]byte
	b.rng.Read(buf[:])
	id, err := uuid.FromBytes(buf[:])
	if err != nil {
		panic(err)
	}
	return id.String()
}

func (b *builder) pick(values []string) string {
	return values[b.rng.Intn(len(values))]
}

func (b *builder) unique(set map[string]bool, gen func() string) string {
	for {
		v := gen()
		if !set[v] {
			set[v] = true
			return v
		}
	}
}

func (b *builder) digits(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte('0' + b.rng.Intn(10))
	}
	return string(buf)
}

func (b *builder) pastTime(maxHours int) time.Time {
	return b.anchor.Add(-time.Duration(1+b.rng.Intn(maxHours)) * time.Hour)
}

func (b *builder) newCustomer() models.Customer {
	phone := b.unique(b.usedPhones, func() string {
		return b.pick(phonePrefixes) + b.digits(8)
	})

	// 90% CCCD，10% 护照
	idNumber := b.unique(b.usedIDs, func() string {
		if b.rng.Float64() < 0.9 {
			return b.digits(12)
		}
		return string(rune('A'+b.rng.Intn(26))) + b.digits(7)
	})

	b.emailSeq++
	email := fmt.Sprintf("khachhang%d@%s", b.emailSeq, b.pick(emailDomains))

	score := float64(b.rng.Intn(1000)) / 10

	c := models.Customer{
		CustomerID:         b.newID(),
		FullName:           b.pick(familyNames) + " " + b.pick(middleNames) + " " + b.pick(givenNames),
		DateOfBirth:        time.Date(1960+b.rng.Intn(45), time.Month(1+b.rng.Intn(12)), 1+b.rng.Intn(28), 0, 0, 0, 0, time.UTC),
		PhoneNumber:        phone,
		IDPassportNumber:   idNumber,
		ResidentialAddress: fmt.Sprintf("Số %d, %s", 1+b.rng.Intn(500), b.pick(cities)),
		RiskScore:          score,
		Status:             b.weightedStatus(),
		CreatedAt:          b.pastTime(24 * 365),
	}
	c.RiskRating = riskRatingForScore(score)

	if b.rng.Float64() < 0.9 {
		c.Email = &email
	}
	if b.rng.Float64() < 0.6 {
		taxID := b.digits(10)
		c.TaxIdentificationNumber = &taxID
	}
	if b.rng.Float64() < 0.95 {
		kyc := c.CreatedAt.Add(time.Duration(1+b.rng.Intn(72)) * time.Hour)
		c.KYCCompletedAt = &kyc
	}
	return c
}

func (b *builder) weightedStatus() string {
	r := b.rng.Float64()
	switch {
	case r < 0.85:
		return "Active"
	case r < 0.92:
		return "Inactive"
	case r < 0.97:
		return "Suspended"
	default:
		return "Closed"
	}
}

// riskRatingForScore 与审计规则保持同一分段：<=30 Low, <=60 Medium, >60 High
func riskRatingForScore(score float64) string {
	switch {
	case score <= 30:
		return models.RiskRatingLow
	case score <= 60:
		return models.RiskRatingMedium
	default:
		return models.RiskRatingHigh
	}
}

func (b *builder) newFaceTemplate(c models.Customer) models.FaceTemplate {
	encoding := make([]byte, 32)
	b.rng.Read(encoding)
	return models.FaceTemplate{
		TemplateID:            b.newID(),
		CustomerID:            c.CustomerID,
		EncryptedFaceEncoding: fmt.Sprintf("%x", encoding),
		CreatedAt:             c.CreatedAt.Add(time.Duration(1+b.rng.Intn(24)) * time.Hour),
	}
}

func (b *builder) newDevice(c models.Customer) models.CustomerDevice {
	deviceType := b.pick(models.DeviceTypes)
	identifier := b.unique(b.usedDevices, func() string { return b.deviceIdentifier() })

	trusted := b.rng.Float64() < 0.85
	status := "Active"
	if !trusted {
		// 未受信设备不保持Active，避免生成可疑组合
		if b.rng.Float64() < 0.5 {
			status = "Blocked"
		} else {
			status = "Expired"
		}
	} else if b.rng.Float64() < 0.05 {
		status = "Expired"
	}

	device := models.CustomerDevice{
		DeviceID:         b.newID(),
		DeviceIdentifier: identifier,
		CustomerID:       c.CustomerID,
		DeviceType:       deviceType,
		IsTrusted:        trusted,
		Status:           status,
		CreatedAt:        c.CreatedAt.Add(time.Duration(1+b.rng.Intn(720)) * time.Hour),
	}
	b.devicesByCustomer[c.CustomerID] = append(b.devicesByCustomer[c.CustomerID], identifier)
	return device
}

func (b *builder) deviceIdentifier() string {
	switch b.rng.Intn(4) {
	case 0:
		return "IMEI:" + b.digits(15)
	case 1:
		mac := make([]byte, 6)
		b.rng.Read(mac)
		return fmt.Sprintf("MAC:%02X:%02X:%02X:%02X:%02X:%02X", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
	case 2:
		return "UUID:" + b.newID()
	default:
		hexID := make([]byte, 8)
		b.rng.Read(hexID)
		return fmt.Sprintf("ANDROID_ID:%x", hexID)
	}
}

func (b *builder) newAccount(c models.Customer) models.BankAccount {
	number := b.unique(b.usedAccounts, func() string { return "280" + b.digits(15) })

	currency := "VND"
	if b.rng.Float64() < 0.1 {
		currency = b.pick([]string{"USD", "EUR"})
	}

	available := decimal.NewFromInt(int64(b.rng.Intn(500_000_000))).Round(2)
	hold := decimal.NewFromInt(int64(b.rng.Intn(5_000_000))).Round(2)

	return models.BankAccount{
		AccountID:               b.newID(),
		CustomerID:              c.CustomerID,
		AccountNumber:           number,
		AccountType:             b.pick(models.AccountTypes),
		Currency:                currency,
		AvailableBalance:        available,
		HoldAmount:              hold,
		CurrentBalance:          available.Add(hold),
		DailyTransferLimit:      decimal.NewFromInt(int64(100_000_000 + b.rng.Intn(400_000_000))),
		DailyOnlinePaymentLimit: decimal.NewFromInt(int64(50_000_000 + b.rng.Intn(150_000_000))),
		Status:                  "Active",
		CreatedAt:               c.CreatedAt.Add(time.Duration(1+b.rng.Intn(168)) * time.Hour),
	}
}

func (b *builder) newTransaction(a models.BankAccount) models.Transaction {
	// 金额分层：50%小额 / 30%中额 / 20%高额
	var amount decimal.Decimal
	tier := b.rng.Float64()
	switch {
	case tier < 0.5:
		amount = decimal.NewFromInt(int64(10_000 + b.rng.Intn(4_990_000)))
	case tier < 0.8:
		amount = decimal.NewFromInt(int64(5_000_000 + b.rng.Intn(5_000_000)))
	default:
		amount = decimal.NewFromInt(int64(10_000_000 + b.rng.Intn(490_000_000)))
	}

	method := b.authMethodFor(amount, a.Currency)
	fee := amount.Mul(decimal.RequireFromString("0.005")).Round(2)

	txn := models.Transaction{
		TransactionID:        b.newID(),
		AccountID:            a.AccountID,
		TransactionType:      b.pick(models.TransactionTypes),
		Amount:               amount,
		Fee:                  fee,
		Currency:             a.Currency,
		AuthenticationMethod: method,
		Status:               "Completed",
		FraudScore:           float64(b.rng.Intn(300)) / 10,
		CreatedAt:            b.txnTime(a, amount, method),
	}
	txn.IsSuspicious = txn.FraudScore > 25

	// 交易类型决定收款方/账单字段形态
	switch txn.TransactionType {
	case models.TxnInternalTransfer:
		recipient := "280" + b.digits(15)
		txn.RecipientAccountNumber = &recipient
	case models.TxnExternalTransfer:
		recipient := b.digits(12)
		bank := b.pick(bankCodes)
		txn.RecipientAccountNumber = &recipient
		txn.RecipientBankCode = &bank
	case models.TxnBillPayment:
		provider := b.pick(providerCodes)
		bill := "BILL" + b.digits(8)
		txn.ServiceProviderCode = &provider
		txn.BillNumber = &bill
	}
	return txn
}

// txnTime 选取交易时间。客户单日非强认证VND交易累计达到20M须有强认证，
// 基础认证交易会突破当日累计时顺延到后续日期，保证纯净批次合规
func (b *builder) txnTime(a models.BankAccount, amount decimal.Decimal, method string) time.Time {
	at := a.CreatedAt.Add(time.Duration(1+b.rng.Intn(1000)) * time.Hour)

	strong := false
	for _, m := range models.StrongAuthMethods {
		if method == m {
			strong = true
			break
		}
	}
	if a.Currency != "VND" || strong {
		return at
	}

	dailyLimit := decimal.NewFromInt(20_000_000)
	key := a.CustomerID + "|" + at.UTC().Format("2006-01-02")
	for b.dailyBasicTotals[key].Add(amount).GreaterThanOrEqual(dailyLimit) {
		at = at.Add(24 * time.Hour)
		key = a.CustomerID + "|" + at.UTC().Format("2006-01-02")
	}
	b.dailyBasicTotals[key] = b.dailyBasicTotals[key].Add(amount)
	return at
}

// authMethodFor 按2345/QĐ-NHNN分层选择认证方式：
// >=10M VND必须强认证，5M-10M倾向PIN_OTP，低额使用基础方式
func (b *builder) authMethodFor(amount decimal.Decimal, currency string) string {
	if currency == "VND" && amount.GreaterThanOrEqual(decimal.NewFromInt(10_000_000)) {
		return b.pick(models.StrongAuthMethods)
	}
	if currency == "VND" && amount.GreaterThanOrEqual(decimal.NewFromInt(5_000_000)) {
		if b.rng.Float64() < 0.7 {
			return "PIN_OTP"
		}
		return b.pick(basicAuthMethods)
	}
	return b.pick(basicAuthMethods)
}

func (b *builder) newAuthLog(c models.Customer, txn *models.Transaction) models.AuthenticationLog {
	log := models.AuthenticationLog{
		LogID:      b.newID(),
		CustomerID: c.CustomerID,
		Status:     "Success",
		CreatedAt:  b.pastTime(24 * 30),
	}

	if r := b.rng.Float64(); r > 0.9 {
		log.Status = b.pick([]string{"Failed", "Blocked", "Timeout"})
	}

	log.AttemptCount = 1
	if log.Status != "Success" {
		log.AttemptCount = 1 + b.rng.Intn(3)
	}

	if devices := b.devicesByCustomer[c.CustomerID]; len(devices) > 0 && b.rng.Float64() < 0.9 {
		identifier := devices[b.rng.Intn(len(devices))]
		log.DeviceIdentifier = &identifier
	}

	if txn != nil {
		log.TransactionID = &txn.TransactionID
		log.AuthenticationType = txn.AuthenticationMethod
		log.CreatedAt = txn.CreatedAt
	} else {
		log.AuthenticationType = "Login"
	}
	return log
}

// injectDefects 按比例向批次注入确定性缺陷，缺陷种类循环轮转，
// 覆盖唯一性、格式、引用完整性和业务规则四个族
func injectDefects(batch *models.Batch, rate float64, rng *rand.Rand) {
	total := batch.TotalRecords()
	count := int(float64(total) * rate)
	if count <= 0 {
		return
	}

	for k := 0; k < count; k++ {
		switch k % 8 {
		case 0: // 重复手机号
			if len(batch.Customers) >= 2 {
				i := rng.Intn(len(batch.Customers) - 1)
				batch.Customers[i+1].PhoneNumber = batch.Customers[i].PhoneNumber
			}
		case 1: // 邮箱格式非法
			if len(batch.Customers) > 0 {
				bad := "khong-hop-le"
				batch.Customers[rng.Intn(len(batch.Customers))].Email = &bad
			}
		case 2: // 风险评分越界
			if len(batch.Customers) > 0 {
				batch.Customers[rng.Intn(len(batch.Customers))].RiskScore = 150
			}
		case 3: // 余额恒等式破坏
			if len(batch.BankAccounts) > 0 {
				i := rng.Intn(len(batch.BankAccounts))
				batch.BankAccounts[i].CurrentBalance = batch.BankAccounts[i].CurrentBalance.Add(decimal.NewFromInt(1000))
			}
		case 4: // 设备标识格式非法
			if len(batch.CustomerDevices) > 0 {
				i := rng.Intn(len(batch.CustomerDevices))
				batch.CustomerDevices[i].DeviceIdentifier = "BAD-" + batch.CustomerDevices[i].DeviceIdentifier
			}
		case 5: // 手续费超限
			if len(batch.Transactions) > 0 {
				i := rng.Intn(len(batch.Transactions))
				batch.Transactions[i].Fee = batch.Transactions[i].Amount.Mul(decimal.RequireFromString("0.5"))
			}
		case 6: // 认证日志引用不存在的交易
			if len(batch.AuthenticationLogs) > 0 {
				i := rng.Intn(len(batch.AuthenticationLogs))
				orphan := "missing-" + fmt.Sprintf("%08d", rng.Intn(100_000_000))
				batch.AuthenticationLogs[i].TransactionID = &orphan
			}
		case 7: // 尝试次数为0
			if len(batch.AuthenticationLogs) > 0 {
				batch.AuthenticationLogs[rng.Intn(len(batch.AuthenticationLogs))].AttemptCount = 0
			}
		}
	}
}
