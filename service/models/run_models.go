/*
 * @module service/models/run_models
 * @description 运行记录持久化模型，包含流水线运行、质量报告和隔离归档三张表
 * @architecture 数据模型层
 * @documentReference ai_docs/banking_dq_pipeline.md
 * @stateFlow 运行开始 -> 审计清洗 -> 报告与隔离归档落库 -> 运行结束
 * @rules 运行记录只增不改，报告与隔离记录通过RunID关联
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/pipeline, service/storage
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PipelineRun 单次流水线运行记录
type PipelineRun struct {
	ID                 string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	Status             RunStatus  `gorm:"type:varchar(30);index" json:"status"`
	TotalRecords       int        `json:"total_records"`
	TotalViolations    int        `json:"total_violations"`
	QuarantinedRecords int        `json:"quarantined_records"`
	FixedRecords       int        `json:"fixed_records"`
	FlaggedRecords     int        `json:"flagged_records"`
	LoadedRecords      int        `json:"loaded_records"`
	ReportLocation     string     `gorm:"type:varchar(200)" json:"report_location"`
	ErrorMessage       string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TableName 指定表名
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// BeforeCreate 创建前钩子
func (r *PipelineRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// QualityReportRecord 质量报告持久化记录，Payload存放完整报告文档
type QualityReportRecord struct {
	ID              string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	RunID           string    `gorm:"type:varchar(50);uniqueIndex" json:"run_id"`
	Status          RunStatus `gorm:"type:varchar(30)" json:"status"`
	TotalRecords    int       `json:"total_records"`
	TotalViolations int       `json:"total_violations"`
	Payload         JSONB     `gorm:"type:jsonb" json:"payload"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (QualityReportRecord) TableName() string {
	return "quality_reports"
}

// BeforeCreate 创建前钩子
func (r *QualityReportRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// QuarantineRecord 隔离记录归档，保留原始记录内容和导致隔离的违规明细
type QuarantineRecord struct {
	ID         string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	RunID      string     `gorm:"type:varchar(50);index" json:"run_id"`
	EntityType EntityType `gorm:"type:varchar(30);index" json:"entity_type"`
	RecordID   string     `gorm:"type:varchar(50)" json:"record_id"`
	Payload    JSONB      `gorm:"type:jsonb" json:"payload"`
	Violations JSONB      `gorm:"type:jsonb" json:"violations"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName 指定表名
func (QuarantineRecord) TableName() string {
	return "quarantine_records"
}

// BeforeCreate 创建前钩子
func (q *QuarantineRecord) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}
