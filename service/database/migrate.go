/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数据库表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/banking_data_model.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies bankdq-service/service/models, gorm.io/gorm
 * @refs service/models/entities.go, service/models/run_models.go
 */

package database

import (
	"log"

	"gorm.io/gorm"

	"bankdq-service/service/models"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 银行业务实体表
	err := db.AutoMigrate(
		&models.Customer{},
		&models.FaceTemplate{},
		&models.BankAccount{},
		&models.CustomerDevice{},
		&models.Transaction{},
		&models.AuthenticationLog{},
	)
	if err != nil {
		return err
	}

	// 质量流水线运行相关表
	err = db.AutoMigrate(
		&models.PipelineRun{},
		&models.QualityReportRecord{},
		&models.QuarantineRecord{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
