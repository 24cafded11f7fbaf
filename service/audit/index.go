/*
 * @module service/audit/index
 * @description 批次只读索引，为规则评估提供主键查找、唯一值分组和客户每日交易聚合，构造一次供全部规则复用
 * @architecture 分层架构 - 审计服务层
 * @stateFlow 批次 -> 构建索引(主键表+唯一值分组+每日聚合) -> 规则只读查询
 * @rules 索引构造后只读；悬空外键的记录不参与以该外键为值的唯一值分组
 * @dependencies bankdq-service/service/models, github.com/shopspring/decimal
 * @refs service/audit/catalog.go
 */

package audit

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bankdq-service/service/models"
)

// 唯一值分组键
const (
	UniqueCustomerPhone      = "customer.phone_number"
	UniqueCustomerEmail      = "customer.email"
	UniqueCustomerTaxID      = "customer.tax_identification_number"
	UniqueCustomerIDPassport = "customer.id_passport_number"
	UniqueFaceCustomerID     = "face_template.customer_id"
	UniqueAccountNumber      = "bank_account.account_number"
	UniqueDeviceIdentifier   = "customer_device.device_identifier"
	UniqueTransactionID      = "transaction.transaction_id"
	UniqueAuthLogID          = "authentication_log.log_id"
)

// GroupMember 唯一值分组成员，携带裁决所需的创建时间
type GroupMember struct {
	RecordID  string
	CreatedAt time.Time
}

// DailyTxnStat 客户单日VND交易聚合，日累计限额规则使用
type DailyTxnStat struct {
	Date          string
	Total         decimal.Decimal
	Count         int
	HasStrongAuth bool
}

// BatchIndex 单个批次的只读索引
type BatchIndex struct {
	customersByID       map[string]bool
	accountsByID        map[string]bool
	transactionsByID    map[string]bool
	devicesByIdentifier map[string]bool

	// 键: 分组键 -> 字段值 -> 成员列表(按创建时间、记录ID排序)
	uniqueGroups map[string]map[string][]GroupMember

	// 键: 客户ID -> 日期(YYYY-MM-DD) -> 当日聚合
	dailyTxns map[string]map[string]*DailyTxnStat
}

// NewBatchIndex 构建批次索引。人脸模板的customer_id分组只收录
// 客户存在的模板，悬空引用由引用完整性规则单独报告
func NewBatchIndex(batch *models.Batch) *BatchIndex {
	idx := &BatchIndex{
		customersByID:       make(map[string]bool, len(batch.Customers)),
		accountsByID:        make(map[string]bool, len(batch.BankAccounts)),
		transactionsByID:    make(map[string]bool, len(batch.Transactions)),
		devicesByIdentifier: make(map[string]bool, len(batch.CustomerDevices)),
		uniqueGroups:        make(map[string]map[string][]GroupMember),
		dailyTxns:           make(map[string]map[string]*DailyTxnStat),
	}

	for _, c := range batch.Customers {
		idx.customersByID[c.CustomerID] = true
		idx.addMember(UniqueCustomerPhone, c.PhoneNumber, c.CustomerID, c.CreatedAt)
		if c.Email != nil {
			idx.addMember(UniqueCustomerEmail, *c.Email, c.CustomerID, c.CreatedAt)
		}
		if c.TaxIdentificationNumber != nil {
			idx.addMember(UniqueCustomerTaxID, *c.TaxIdentificationNumber, c.CustomerID, c.CreatedAt)
		}
		idx.addMember(UniqueCustomerIDPassport, c.IDPassportNumber, c.CustomerID, c.CreatedAt)
	}

	accountCustomer := make(map[string]string, len(batch.BankAccounts))
	for _, a := range batch.BankAccounts {
		idx.accountsByID[a.AccountID] = true
		idx.addMember(UniqueAccountNumber, a.AccountNumber, a.AccountID, a.CreatedAt)
		accountCustomer[a.AccountID] = a.CustomerID
	}

	for _, d := range batch.CustomerDevices {
		idx.devicesByIdentifier[d.DeviceIdentifier] = true
		idx.addMember(UniqueDeviceIdentifier, d.DeviceIdentifier, d.DeviceID, d.CreatedAt)
	}

	for _, t := range batch.Transactions {
		idx.transactionsByID[t.TransactionID] = true
		idx.addMember(UniqueTransactionID, t.TransactionID, t.TransactionID, t.CreatedAt)
		if custID, ok := accountCustomer[t.AccountID]; ok {
			idx.addDailyTxn(custID, t)
		}
	}

	for _, f := range batch.FaceTemplates {
		if idx.customersByID[f.CustomerID] {
			idx.addMember(UniqueFaceCustomerID, f.CustomerID, f.TemplateID, f.CreatedAt)
		}
	}

	for _, l := range batch.AuthenticationLogs {
		idx.addMember(UniqueAuthLogID, l.LogID, l.LogID, l.CreatedAt)
	}

	idx.sortGroups()
	return idx
}

func (idx *BatchIndex) addMember(groupKey, value, recordID string, createdAt time.Time) {
	if value == "" {
		return
	}
	group, ok := idx.uniqueGroups[groupKey]
	if !ok {
		group = make(map[string][]GroupMember)
		idx.uniqueGroups[groupKey] = group
	}
	group[value] = append(group[value], GroupMember{RecordID: recordID, CreatedAt: createdAt})
}

// addDailyTxn 累加客户单日VND交易。与2345/QĐ-NHNN口径一致：
// 只统计已完成的转账/缴费类VND交易
func (idx *BatchIndex) addDailyTxn(customerID string, t models.Transaction) {
	if t.Currency != "VND" || t.Status != "Completed" {
		return
	}
	typed := false
	for _, txnType := range models.TransactionTypes {
		if t.TransactionType == txnType {
			typed = true
			break
		}
	}
	if !typed {
		return
	}

	days, ok := idx.dailyTxns[customerID]
	if !ok {
		days = make(map[string]*DailyTxnStat)
		idx.dailyTxns[customerID] = days
	}
	date := t.CreatedAt.UTC().Format("2006-01-02")
	stat, ok := days[date]
	if !ok {
		stat = &DailyTxnStat{Date: date}
		days[date] = stat
	}
	stat.Total = stat.Total.Add(t.Amount)
	stat.Count++
	for _, method := range models.StrongAuthMethods {
		if t.AuthenticationMethod == method {
			stat.HasStrongAuth = true
			break
		}
	}
}

// DailyTxnStats 返回客户的每日VND交易聚合，按日期升序
func (idx *BatchIndex) DailyTxnStats(customerID string) []DailyTxnStat {
	days := idx.dailyTxns[customerID]
	if len(days) == 0 {
		return nil
	}
	stats := make([]DailyTxnStat, 0, len(days))
	for _, stat := range days {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats
}

// sortGroups 组内成员按创建时间升序、同时刻按记录ID升序排序，
// 保证裁决结果与批次内的记录顺序无关
func (idx *BatchIndex) sortGroups() {
	for _, group := range idx.uniqueGroups {
		for _, members := range group {
			sort.Slice(members, func(i, j int) bool {
				if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
					return members[i].CreatedAt.Before(members[j].CreatedAt)
				}
				return members[i].RecordID < members[j].RecordID
			})
		}
	}
}

// HasCustomer 客户ID是否存在于批次
func (idx *BatchIndex) HasCustomer(id string) bool { return idx.customersByID[id] }

// HasAccount 账户ID是否存在于批次
func (idx *BatchIndex) HasAccount(id string) bool { return idx.accountsByID[id] }

// HasTransaction 交易ID是否存在于批次
func (idx *BatchIndex) HasTransaction(id string) bool { return idx.transactionsByID[id] }

// HasDevice 设备标识是否存在于批次
func (idx *BatchIndex) HasDevice(identifier string) bool { return idx.devicesByIdentifier[identifier] }

// UniqueGroup 返回分组键下某字段值的成员列表，无重复时长度为1
func (idx *BatchIndex) UniqueGroup(groupKey, value string) []GroupMember {
	group, ok := idx.uniqueGroups[groupKey]
	if !ok {
		return nil
	}
	return group[value]
}

// CanonicalMember 重复组的保留成员：创建时间最早者，时间相同取记录ID最小者
func CanonicalMember(members []GroupMember) (GroupMember, bool) {
	if len(members) == 0 {
		return GroupMember{}, false
	}
	return members[0], true
}
