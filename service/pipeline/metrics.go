/*
 * @module service/pipeline/metrics
 * @description 流水线Prometheus指标：运行计数、违规计数、处置计数和运行耗时
 * @architecture 分层架构 - 流水线服务层
 * @rules 指标注册到默认Registry，进程内只注册一次
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs main.go(/metrics端点), service/pipeline/pipeline.go
 */

package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 流水线指标集合
type Metrics struct {
	RunsTotal         *prometheus.CounterVec
	ViolationsTotal   *prometheus.CounterVec
	DispositionsTotal *prometheus.CounterVec
	RunDuration       prometheus.Histogram
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// SharedMetrics 进程级单例，避免重复注册
func SharedMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bankdq",
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "流水线运行次数，按状态分类",
			}, []string{"status"}),
			ViolationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bankdq",
				Subsystem: "pipeline",
				Name:      "violations_total",
				Help:      "审计发现的违规数，按严重级别分类",
			}, []string{"severity"}),
			DispositionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bankdq",
				Subsystem: "pipeline",
				Name:      "dispositions_total",
				Help:      "清洗处置数，按动作分类",
			}, []string{"action"}),
			RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "bankdq",
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "单次流水线运行耗时",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			}),
		}
	})
	return metricsInstance
}
