/*
 * @module service/dgm/metrics
 * @description 生成管线的Prometheus指标：尝试/接受/拒绝/回退计数与运行时长
 * @architecture 监控埋点
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 编排器在生成循环中递增计数，/metrics端点暴露
 * @rules 指标只增不减，命名遵循prometheus惯例
 * @dependencies github.com/prometheus/client_golang
 * @refs service/dgm/generator.go
 */

package dgm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dgm",
		Name:      "generation_attempts_total",
		Help:      "样本生成尝试总数",
	})
	metricAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dgm",
		Name:      "samples_accepted_total",
		Help:      "过滤通过的样本总数",
	})
	metricRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dgm",
		Name:      "samples_rejected_total",
		Help:      "过滤拒绝的样本总数",
	})
	metricFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dgm",
		Name:      "oracle_fallbacks_total",
		Help:      "预言机失败回退规则生成的字段组总数",
	})
	metricRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dgm",
		Name:      "generation_run_duration_seconds",
		Help:      "一次生成运行的耗时分布",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
