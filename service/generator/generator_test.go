/*
 * @module service/generator/generator_test
 * @description 生成器测试：种子确定性、纯净批次通过全部规则、缺陷注入产生违规
 * @architecture 测试层
 * @dependencies testing, testify, bankdq-service/service/audit
 * @refs generator.go
 */

package generator

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdq-service/service/audit"
	"bankdq-service/service/models"
)

func TestSameSeedProducesIdenticalBatch(t *testing.T) {
	cfg := Config{Seed: 42, CustomerCount: 30}
	first := New(cfg).Generate()
	second := New(cfg).Generate()

	assert.True(t, reflect.DeepEqual(first, second), "相同种子必须产出完全相同的批次")
}

func TestDifferentSeedsProduceDifferentBatches(t *testing.T) {
	first := New(Config{Seed: 1, CustomerCount: 10}).Generate()
	second := New(Config{Seed: 2, CustomerCount: 10}).Generate()

	assert.NotEqual(t, first.Customers[0].CustomerID, second.Customers[0].CustomerID)
}

func TestCleanGenerationPassesAllRules(t *testing.T) {
	batch := New(Config{Seed: 7, CustomerCount: 50}).Generate()
	require.Equal(t, 50, len(batch.Customers))
	require.Equal(t, 50, len(batch.FaceTemplates), "每个客户恰好一份人脸模板")

	result := audit.NewEngine(audit.DefaultCatalog()).Audit(batch)
	assert.Empty(t, result.Violations, "无缺陷生成的批次必须通过全部质量规则: %+v", result.Violations)
}

func TestDefectInjectionProducesViolations(t *testing.T) {
	batch := New(Config{Seed: 7, CustomerCount: 50, DefectRate: 0.1}).Generate()

	result := audit.NewEngine(audit.DefaultCatalog()).Audit(batch)
	assert.NotEmpty(t, result.Violations, "注入缺陷后必须产生违规")
	assert.True(t, result.HasBlocking(), "缺陷种类覆盖Critical/High级规则")
}

func TestStrongAuthForHighValueTransactions(t *testing.T) {
	batch := New(Config{Seed: 11, CustomerCount: 80}).Generate()

	checked := 0
	for _, txn := range batch.Transactions {
		if txn.Currency != "VND" || txn.Amount.LessThan(audit.StrongAuthThreshold) {
			continue
		}
		checked++
		found := false
		for _, m := range models.StrongAuthMethods {
			if txn.AuthenticationMethod == m {
				found = true
			}
		}
		assert.True(t, found, "高额VND交易 %s 必须使用强认证", txn.TransactionID)
	}
	assert.Positive(t, checked, "批次中应包含达到强认证门槛的交易")
}
