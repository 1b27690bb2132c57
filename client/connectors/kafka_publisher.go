/*
 * @module client/connectors/kafka_publisher
 * @description Kafka运行事件发布器，生成运行结束后向消息总线发布运行完成事件
 * @architecture 适配器模式 - 封装第三方Kafka客户端，提供统一的接口
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 连接建立 -> 运行完成事件发布 -> 连接断开
 * @rules 未配置KAFKA_BROKERS时发布器为空实现；发布失败只记日志不影响生成结果
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/dgm/generator.go
 */
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gantry-dgm-service/service/models"

	"github.com/segmentio/kafka-go"
)

// RunCompletedEvent 生成运行完成事件
type RunCompletedEvent struct {
	RunID      string                    `json:"run_id"`
	Status     string                    `json:"status"`
	Statistics models.GenerateStatistics `json:"statistics"`
	Direct     models.DirectEvaluation   `json:"direct_evaluation"`
	Indirect   models.IndirectEvaluation `json:"indirect_evaluation"`
	FinishedAt time.Time                 `json:"finished_at"`
}

// KafkaRunPublisher Kafka运行事件发布器
type KafkaRunPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaRunPublisherFromEnv 按环境变量创建发布器，KAFKA_BROKERS未配置返回nil
func NewKafkaRunPublisherFromEnv() *KafkaRunPublisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return nil
	}
	topic := os.Getenv("KAFKA_RUN_TOPIC")
	if topic == "" {
		topic = "dgm.generation.runs"
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}
	slog.Info("Kafka运行事件发布器已创建", "brokers", brokers, "topic", topic)
	return &KafkaRunPublisher{writer: writer, topic: topic}
}

// PublishRunCompleted 发布运行完成事件，失败只记日志
func (p *KafkaRunPublisher) PublishRunCompleted(ctx context.Context, event RunCompletedEvent) {
	if p == nil || p.writer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("运行完成事件序列化失败", "error", err)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		slog.Error("运行完成事件发布失败", "run_id", event.RunID, "error", err)
		return
	}
	slog.Debug("运行完成事件已发布", "run_id", event.RunID, "topic", p.topic)
}

// Close 关闭底层写入器
func (p *KafkaRunPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("关闭Kafka写入器失败: %w", err)
	}
	return nil
}
