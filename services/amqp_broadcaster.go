package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"match-detail-service/logger"
	"match-detail-service/models"
)

// ReconnectConfig 重连配置
type ReconnectConfig struct {
	InitialDelay  time.Duration // 初始延迟
	MaxDelay      time.Duration // 最大延迟
	BackoffFactor float64       // 退避因子
}

// DefaultReconnectConfig 默认重连配置：指数退避，无限重试
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		InitialDelay:  1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
	}
}

// AMQPBroadcaster 基于 fanout exchange 的 Broadcaster 实现。
// 每个进程绑定一个独占的自动删除队列，所有进程共享同一个 exchange，
// 发布的消息被广播到包括发布者在内的全部进程。
type AMQPBroadcaster struct {
	url       string
	exchange  string
	reconnect *ReconnectConfig

	conn    *amqp.Connection
	channel *amqp.Channel
	sink    LocalSink
	done    chan struct{}
	mu      sync.Mutex
	once    sync.Once
}

// NewAMQPBroadcaster 创建 AMQPBroadcaster 实例
func NewAMQPBroadcaster(url, exchange string) *AMQPBroadcaster {
	return &AMQPBroadcaster{
		url:       url,
		exchange:  exchange,
		reconnect: DefaultReconnectConfig(),
		done:      make(chan struct{}),
	}
}

// Start 实现 Broadcaster 接口。首次连接失败不会让进程崩溃，
// 后台循环按退避策略持续重试；断线期间 Publish 返回错误。
func (b *AMQPBroadcaster) Start(sink LocalSink) error {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()

	logger.Printf("[AMQP] Starting broadcaster on exchange %s", b.exchange)
	go b.run()
	return nil
}

// run 连接、消费、断线重连的主循环
func (b *AMQPBroadcaster) run() {
	currentDelay := b.reconnect.InitialDelay

	for {
		select {
		case <-b.done:
			return
		default:
		}

		deliveries, err := b.connectAndConsume()
		if err != nil {
			logger.Errorf("[AMQP] ❌ Connect failed: %v, retrying in %v", err, currentDelay)
			select {
			case <-b.done:
				return
			case <-time.After(currentDelay):
			}
			// 指数退避
			currentDelay = time.Duration(float64(currentDelay) * b.reconnect.BackoffFactor)
			if currentDelay > b.reconnect.MaxDelay {
				currentDelay = b.reconnect.MaxDelay
			}
			continue
		}

		logger.Println("[AMQP] ✅ Connected, consuming broadcast messages")
		currentDelay = b.reconnect.InitialDelay

		b.consume(deliveries)

		select {
		case <-b.done:
			return
		default:
			logger.Errorln("[AMQP] ⚠️ Connection lost, reconnecting...")
		}
	}
}

// connectAndConsume 建立连接，声明 exchange 和独占队列，开始消费
func (b *AMQPBroadcaster) connectAndConsume() (<-chan amqp.Delivery, error) {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// fanout exchange，所有进程共享
	if err := channel.ExchangeDeclare(
		b.exchange,
		"fanout",
		false, // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// 每个进程一个独占的自动删除队列
	queue, err := channel.QueueDeclare(
		"",    // name (auto-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, "", b.exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := channel.Consume(
		queue.Name,
		"",    // consumer
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	if !b.storeConn(conn, channel) {
		conn.Close()
		return nil, fmt.Errorf("broadcaster stopped")
	}

	logger.Printf("[AMQP] Queue %s bound to exchange %s", queue.Name, b.exchange)
	return deliveries, nil
}

// storeConn 持锁保存新连接。Stop 已经执行时拒绝保存，
// 否则拨号中途 Stop 会漏关刚建立的连接
func (b *AMQPBroadcaster) storeConn(conn *amqp.Connection, channel *amqp.Channel) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return false
	default:
	}
	b.conn = conn
	b.channel = channel
	return true
}

// consume 把通道消息转发进本地 sink，通道关闭时返回
func (b *AMQPBroadcaster) consume(deliveries <-chan amqp.Delivery) {
	for delivery := range deliveries {
		var msg models.BroadcastMessage
		if err := json.Unmarshal(delivery.Body, &msg); err != nil {
			logger.Errorf("[AMQP] Failed to unmarshal broadcast message: %v", err)
			continue
		}

		b.mu.Lock()
		sink := b.sink
		b.mu.Unlock()

		if sink != nil {
			sink.Broadcast(msg)
		}
	}
}

// Publish 实现 Broadcaster 接口
func (b *AMQPBroadcaster) Publish(msg models.BroadcastMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}

	b.mu.Lock()
	channel := b.channel
	b.mu.Unlock()

	if channel == nil {
		return fmt.Errorf("not connected")
	}

	return channel.Publish(
		b.exchange,
		"",    // routing key (fanout 忽略)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
		},
	)
}

// Stop 实现 Broadcaster 接口，可重复调用
func (b *AMQPBroadcaster) Stop() {
	b.once.Do(func() {
		close(b.done)

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.conn != nil {
			b.conn.Close()
			b.conn = nil
			b.channel = nil
		}
		logger.Println("[AMQP] Broadcaster stopped")
	})
}
