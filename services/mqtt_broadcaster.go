package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"match-detail-service/logger"
	"match-detail-service/models"
)

// MQTTBroadcaster 是基于 MQTT 共享主题的 Broadcaster 实现，
// 适用于已有 MQTT 中间件的部署环境（BROADCASTER=mqtt）
type MQTTBroadcaster struct {
	broker   string
	username string
	password string
	topic    string

	client mqtt.Client
	sink   LocalSink
	mu     sync.Mutex
	once   sync.Once
}

// NewMQTTBroadcaster 创建 MQTTBroadcaster 实例
func NewMQTTBroadcaster(broker, username, password, topic string) *MQTTBroadcaster {
	return &MQTTBroadcaster{
		broker:   broker,
		username: username,
		password: password,
		topic:    topic,
	}
}

// Start 实现 Broadcaster 接口
func (b *MQTTBroadcaster) Start(sink LocalSink) error {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.broker)
	opts.SetUsername(b.username)
	opts.SetPassword(b.password)
	opts.SetClientID(fmt.Sprintf("match-detail-%d", time.Now().UnixNano()))

	// 自动重连，首次连接失败也在后台重试
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)

	// 连接（含重连）成功后订阅共享主题
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		token := client.Subscribe(b.topic, QoSAtLeastOnce, b.onMessage)
		if token.Wait() && token.Error() != nil {
			logger.Errorf("[MQTT] ❌ Subscribe failed: %v", token.Error())
			return
		}
		logger.Printf("[MQTT] ✅ Subscribed to topic %s", b.topic)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Errorf("[MQTT] ⚠️ Connection lost: %v", err)
	})

	b.client = mqtt.NewClient(opts)
	b.client.Connect()
	return nil
}

// QoS 级别
const (
	QoSAtMostOnce  = 0
	QoSAtLeastOnce = 1
)

// onMessage 把主题消息转发进本地 sink
func (b *MQTTBroadcaster) onMessage(_ mqtt.Client, m mqtt.Message) {
	var msg models.BroadcastMessage
	if err := json.Unmarshal(m.Payload(), &msg); err != nil {
		logger.Errorf("[MQTT] Failed to unmarshal broadcast message: %v", err)
		return
	}

	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()

	if sink != nil {
		sink.Broadcast(msg)
	}
}

// Publish 实现 Broadcaster 接口
func (b *MQTTBroadcaster) Publish(msg models.BroadcastMessage) error {
	if b.client == nil || !b.client.IsConnected() {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}

	token := b.client.Publish(b.topic, QoSAtLeastOnce, false, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish failed: %w", token.Error())
	}
	return nil
}

// Stop 实现 Broadcaster 接口，可重复调用
func (b *MQTTBroadcaster) Stop() {
	b.once.Do(func() {
		if b.client != nil && b.client.IsConnected() {
			b.client.Disconnect(250)
		}
		logger.Println("[MQTT] Broadcaster stopped")
	})
}
