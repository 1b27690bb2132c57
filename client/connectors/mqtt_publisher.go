/*
 * @module client/connectors/mqtt_publisher
 * @description MQTT进度发布器，生成运行过程中按批次向外广播进度消息
 * @architecture 适配器模式 - 封装第三方MQTT客户端，提供统一的接口
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 连接建立 -> 批次进度发布 -> 连接断开
 * @rules 未配置MQTT_BROKER时发布器为空实现；QoS 0尽力投递，进度丢失可接受
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
 * @refs service/dgm/generator.go
 */
package connectors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ProgressEvent 生成进度事件
type ProgressEvent struct {
	RunID     string    `json:"run_id"`
	Requested int       `json:"requested"`
	Accepted  int       `json:"accepted"`
	Rejected  int       `json:"rejected"`
	Attempts  int       `json:"attempts"`
	Timestamp time.Time `json:"timestamp"`
}

// MQTTProgressPublisher MQTT进度发布器
type MQTTProgressPublisher struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTTProgressPublisherFromEnv 按环境变量创建发布器，MQTT_BROKER未配置返回nil
func NewMQTTProgressPublisherFromEnv() *MQTTProgressPublisher {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		return nil
	}
	topicPrefix := os.Getenv("MQTT_PROGRESS_TOPIC_PREFIX")
	if topicPrefix == "" {
		topicPrefix = "dgm/progress"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("dgm-publisher-%d", os.Getpid()))
	if username := os.Getenv("MQTT_USERNAME"); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	}
	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		slog.Error("MQTT进度发布器连接失败", "broker", broker, "error", token.Error())
		return nil
	}
	slog.Info("MQTT进度发布器已连接", "broker", broker, "topic_prefix", topicPrefix)
	return &MQTTProgressPublisher{client: client, topicPrefix: topicPrefix}
}

// PublishProgress 发布一次批次进度，失败只记日志
func (p *MQTTProgressPublisher) PublishProgress(event ProgressEvent) {
	if p == nil || p.client == nil {
		return
	}
	event.Timestamp = time.Now()
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("进度事件序列化失败", "error", err)
		return
	}
	topic := fmt.Sprintf("%s/%s", p.topicPrefix, event.RunID)
	token := p.client.Publish(topic, 0, false, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		slog.Warn("进度事件发布失败", "topic", topic, "error", token.Error())
	}
}

// Close 断开MQTT连接
func (p *MQTTProgressPublisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}
