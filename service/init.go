/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、流水线服务装配和定时调度启动
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/banking_dq_pipeline.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保数据库和流水线服务正常装配后才提供API服务；Redis/Kafka为可选协作方，未配置时跳过
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, github.com/spf13/cast
 * @refs service/pipeline, service/storage
 */

package service

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"bankdq-service/service/audit"
	"bankdq-service/service/database"
	"bankdq-service/service/generator"
	"bankdq-service/service/pipeline"
	"bankdq-service/service/storage"
)

var (
	DB                    *gorm.DB
	GlobalPipelineService *pipeline.Service
	GlobalLoader          *storage.Loader
	GlobalReportCache     *storage.ReportCache
	GlobalEventPublisher  *storage.RunEventPublisher
	GlobalScheduler       *pipeline.Scheduler
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
	startScheduler()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5433")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "banking_system")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=Asia/Ho_Chi_Minh",
			host, port, user, password, dbname, sslmode)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")
}

// initServices 装配流水线服务及可选协作方
func initServices() {
	seed := cast.ToInt64(os.Getenv("PIPELINE_SEED"))
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	gen := generator.New(generator.Config{
		Seed:          seed,
		CustomerCount: cast.ToInt(getEnvWithDefault("PIPELINE_CUSTOMERS", "100")),
		DefectRate:    cast.ToFloat64(getEnvWithDefault("PIPELINE_DEFECT_RATE", "0.05")),
	})

	GlobalPipelineService = pipeline.NewService(DB, gen, audit.DefaultCatalog())
	GlobalLoader = GlobalPipelineService.Loader()

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalReportCache = storage.NewReportCache(
			redisAddr,
			os.Getenv("REDIS_PASSWORD"),
			cast.ToInt(os.Getenv("REDIS_DB")),
			0,
		)
		GlobalPipelineService.SetReportCache(GlobalReportCache)
		log.Println("报告缓存已启用:", redisAddr)
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		GlobalEventPublisher = storage.NewRunEventPublisher(
			strings.Split(brokers, ","),
			os.Getenv("KAFKA_RUN_TOPIC"),
		)
		GlobalPipelineService.SetEventPublisher(GlobalEventPublisher)
		log.Println("运行事件发布已启用:", brokers)
	}
}

// startScheduler 启动定时调度，PIPELINE_SCHEDULE=off时关闭
func startScheduler() {
	if getEnvWithDefault("PIPELINE_SCHEDULE", "on") == "off" {
		log.Println("定时调度已关闭")
		return
	}

	GlobalScheduler = pipeline.NewScheduler(GlobalPipelineService, os.Getenv("PIPELINE_CRON"))
	if err := GlobalScheduler.Start(); err != nil {
		log.Fatalf("定时调度启动失败: %v", err)
	}
}
