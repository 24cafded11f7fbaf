/*
 * @module service/storage/event_publisher
 * @description 运行完成事件的Kafka发布器，下游监控和告警系统订阅消费
 * @architecture 分层架构 - 存储服务层
 * @stateFlow 流水线运行结束 -> 构造运行事件 -> 按运行ID分区写入主题
 * @rules 事件发布失败只记日志不中断流水线；消息键为运行ID保证同一运行的事件有序
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/pipeline
 */

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"bankdq-service/service/models"
)

// DefaultRunTopic 运行事件默认主题
const DefaultRunTopic = "bankdq.pipeline.runs"

// RunEvent 运行完成事件载荷
type RunEvent struct {
	RunID              string           `json:"run_id"`
	Status             models.RunStatus `json:"status"`
	TotalRecords       int              `json:"total_records"`
	TotalViolations    int              `json:"total_violations"`
	QuarantinedRecords int              `json:"quarantined_records"`
	FixedRecords       int              `json:"fixed_records"`
	FlaggedRecords     int              `json:"flagged_records"`
	LoadedRecords      int              `json:"loaded_records"`
	FinishedAt         time.Time        `json:"finished_at"`
}

// RunEventPublisher 运行事件发布器
type RunEventPublisher struct {
	writer *kafka.Writer
}

// NewRunEventPublisher 创建发布器，topic为空时使用默认主题
func NewRunEventPublisher(brokers []string, topic string) *RunEventPublisher {
	if topic == "" {
		topic = DefaultRunTopic
	}
	return &RunEventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// Publish 发布运行完成事件
func (p *RunEventPublisher) Publish(ctx context.Context, run *models.PipelineRun) error {
	finishedAt := time.Now()
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}

	payload, err := json.Marshal(RunEvent{
		RunID:              run.ID,
		Status:             run.Status,
		TotalRecords:       run.TotalRecords,
		TotalViolations:    run.TotalViolations,
		QuarantinedRecords: run.QuarantinedRecords,
		FixedRecords:       run.FixedRecords,
		FlaggedRecords:     run.FlaggedRecords,
		LoadedRecords:      run.LoadedRecords,
		FinishedAt:         finishedAt,
	})
	if err != nil {
		return fmt.Errorf("运行事件序列化失败: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(run.ID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("运行事件发布失败: %w", err)
	}
	return nil
}

// Close 关闭Kafka写入器
func (p *RunEventPublisher) Close() error {
	return p.writer.Close()
}
