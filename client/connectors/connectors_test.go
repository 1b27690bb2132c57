/*
 * @module client/connectors/connectors_test
 * @description 事件发布器测试：环境未配置时的空实现语义与nil安全
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 发布器未配置时所有操作必须是无害的空操作
 * @dependencies github.com/stretchr/testify
 * @refs client/connectors/kafka_publisher.go, client/connectors/mqtt_publisher.go
 */

package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKafkaPublisherNilWhenUnconfigured(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	assert.Nil(t, NewKafkaRunPublisherFromEnv())
}

func TestKafkaPublisherNilSafe(t *testing.T) {
	var p *KafkaRunPublisher
	// nil接收者上的发布与关闭都是空操作
	p.PublishRunCompleted(context.Background(), RunCompletedEvent{RunID: "r1"})
	assert.NoError(t, p.Close())
}

func TestMQTTPublisherNilWhenUnconfigured(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	assert.Nil(t, NewMQTTProgressPublisherFromEnv())
}

func TestMQTTPublisherNilSafe(t *testing.T) {
	var p *MQTTProgressPublisher
	p.PublishProgress(ProgressEvent{RunID: "r1"})
	p.Close()
}
