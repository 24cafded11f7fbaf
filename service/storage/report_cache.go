/*
 * @module service/storage/report_cache
 * @description 最新质量报告的Redis缓存，仪表盘API优先读缓存，未命中时回源数据库
 * @architecture 分层架构 - 存储服务层
 * @stateFlow 流水线运行完成 -> 写入latest键 -> API读取 -> 未命中回源
 * @rules 缓存是尽力而为的加速层，读写失败不影响流水线主流程
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/pipeline, api/controllers
 */

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"bankdq-service/service/models"
)

const latestReportKey = "bankdq:report:latest"

// CachedReport 缓存中的报告载荷
type CachedReport struct {
	RunID  string         `json:"run_id"`
	Report *models.Report `json:"report"`
}

// ReportCache 最新报告缓存
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache 创建报告缓存，ttl为0时缓存永不过期
func NewReportCache(addr, password string, db int, ttl time.Duration) *ReportCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &ReportCache{client: client, ttl: ttl}
}

// SetLatest 写入最新报告
func (c *ReportCache) SetLatest(ctx context.Context, runID string, report *models.Report) error {
	payload, err := json.Marshal(CachedReport{RunID: runID, Report: report})
	if err != nil {
		return fmt.Errorf("报告缓存序列化失败: %w", err)
	}
	if err := c.client.Set(ctx, latestReportKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("报告缓存写入失败: %w", err)
	}
	return nil
}

// GetLatest 读取最新报告，缓存未命中返回nil
func (c *ReportCache) GetLatest(ctx context.Context) (*CachedReport, error) {
	raw, err := c.client.Get(ctx, latestReportKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("报告缓存读取失败: %w", err)
	}
	var cached CachedReport
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("报告缓存反序列化失败: %w", err)
	}
	return &cached, nil
}

// Close 关闭Redis连接
func (c *ReportCache) Close() error {
	return c.client.Close()
}
