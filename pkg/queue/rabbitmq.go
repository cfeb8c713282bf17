package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tucpd/listening-app/pkg/models"
)

// RabbitMQQueue RabbitMQ 设备事件队列
// 1. 单一 Consumer，事件按到达顺序交给唯一的 Worker
// 2. 消息不持久化，并设置 TTL，过期的位置采样直接丢弃
// 3. 手动 Ack/Nack
type RabbitMQQueue struct {
	url       string
	queueName string
	prefetch  int
	ttl       time.Duration
	closed    chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc

	// 发布消息用的连接和通道
	publishConn    *amqp.Connection
	publishChannel *amqp.Channel
	publishMutex   sync.Mutex

	// 消费消息用的连接和通道
	consumeConn    *amqp.Connection
	consumeChannel *amqp.Channel
	deliveries     <-chan amqp.Delivery

	// RabbitMQ Channel 不是并发安全的
	ackMutex sync.Mutex
}

// NewRabbitMQQueue 创建 RabbitMQ 队列
func NewRabbitMQQueue(url, queueName string, prefetch int, ttl time.Duration) (*RabbitMQQueue, error) {
	if prefetch <= 0 {
		prefetch = 16
	}
	ctx, cancel := context.WithCancel(context.Background())

	rq := &RabbitMQQueue{
		url:       url,
		queueName: queueName,
		prefetch:  prefetch,
		ttl:       ttl,
		closed:    make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	// 1. 建立发布连接
	if err := rq.setupPublisher(); err != nil {
		cancel()
		return nil, fmt.Errorf("初始化发布者失败: %w", err)
	}

	// 2. 建立消费连接
	if err := rq.setupConsumer(); err != nil {
		cancel()
		rq.closePublisher()
		return nil, fmt.Errorf("初始化消费者失败: %w", err)
	}

	log.Printf("✓ RabbitMQ 事件队列初始化成功 (队列: %s)", queueName)
	return rq, nil
}

// declare 声明队列（幂等操作）
func (rq *RabbitMQQueue) declare(ch *amqp.Channel) error {
	var args amqp.Table
	if rq.ttl > 0 {
		args = amqp.Table{"x-message-ttl": int32(rq.ttl / time.Millisecond)}
	}
	_, err := ch.QueueDeclare(
		rq.queueName, // name
		false,        // durable: 设备事件只在会话内有效
		false,        // autoDelete
		false,        // exclusive
		false,        // noWait
		args,
	)
	return err
}

// setupPublisher 设置发布者连接
func (rq *RabbitMQQueue) setupPublisher() error {
	conn, err := amqp.Dial(rq.url)
	if err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("创建 RabbitMQ Channel 失败: %w", err)
	}

	if err := rq.declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("声明队列失败: %w", err)
	}

	rq.publishConn = conn
	rq.publishChannel = ch

	log.Println("✓ RabbitMQ 发布者连接已建立")
	return nil
}

// setupConsumer 设置消费者连接
func (rq *RabbitMQQueue) setupConsumer() error {
	conn, err := amqp.Dial(rq.url)
	if err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("创建 RabbitMQ Channel 失败: %w", err)
	}

	if err := rq.declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("声明队列失败: %w", err)
	}

	if err := ch.Qos(rq.prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("设置 QoS 失败: %w", err)
	}

	deliveries, err := ch.Consume(
		rq.queueName,      // queue
		"playback-engine", // consumer tag
		false,             // autoAck: 手动确认
		true,              // exclusive: 只允许一个消费者，保证事件顺序
		false,             // noLocal
		false,             // noWait
		nil,               // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("启动消费失败: %w", err)
	}

	rq.consumeConn = conn
	rq.consumeChannel = ch
	rq.deliveries = deliveries

	log.Printf("✓ RabbitMQ 消费者已启动 (prefetchCount=%d)", rq.prefetch)
	return nil
}

// Enqueue 将事件加入队列
func (rq *RabbitMQQueue) Enqueue(ev *models.PlaybackEvent) error {
	rq.publishMutex.Lock()
	defer rq.publishMutex.Unlock()

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(rq.ctx, 5*time.Second)
	defer cancel()

	err = rq.publishChannel.PublishWithContext(
		ctx,
		"",           // exchange: 默认 exchange
		rq.queueName, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Transient,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    ev.ReceivedAt,
			Type:         string(ev.Type),
		},
	)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// Dequeue 从队列取出事件（阻塞）
func (rq *RabbitMQQueue) Dequeue() (*models.PlaybackEvent, error) {
	select {
	case <-rq.closed:
		return nil, ErrQueueClosed
	case <-rq.ctx.Done():
		return nil, ErrQueueClosed
	case delivery, ok := <-rq.deliveries:
		if !ok {
			return nil, fmt.Errorf("消费通道已关闭")
		}

		var ev models.PlaybackEvent
		if err := json.Unmarshal(delivery.Body, &ev); err != nil {
			// 反序列化失败，拒绝消息（不重新入队）
			rq.nackInternal(delivery.DeliveryTag, false)
			return nil, fmt.Errorf("反序列化事件失败: %w", err)
		}

		ev.DeliveryTag = delivery.DeliveryTag
		ev.RabbitMQDelivery = &delivery
		return &ev, nil
	}
}

// Ack 确认事件
func (rq *RabbitMQQueue) Ack(ev *models.PlaybackEvent) error {
	if ev.RabbitMQDelivery == nil {
		return nil // 不是 RabbitMQ 消息，忽略
	}
	delivery := ev.RabbitMQDelivery.(*amqp.Delivery)
	return rq.ackInternal(delivery.DeliveryTag)
}

// Nack 拒绝事件
func (rq *RabbitMQQueue) Nack(ev *models.PlaybackEvent, requeue bool) error {
	if ev.RabbitMQDelivery == nil {
		return nil
	}
	delivery := ev.RabbitMQDelivery.(*amqp.Delivery)
	return rq.nackInternal(delivery.DeliveryTag, requeue)
}

func (rq *RabbitMQQueue) ackInternal(deliveryTag uint64) error {
	rq.ackMutex.Lock()
	defer rq.ackMutex.Unlock()

	return rq.consumeChannel.Ack(deliveryTag, false)
}

func (rq *RabbitMQQueue) nackInternal(deliveryTag uint64, requeue bool) error {
	rq.ackMutex.Lock()
	defer rq.ackMutex.Unlock()

	return rq.consumeChannel.Nack(deliveryTag, false, requeue)
}

// Close 关闭队列
func (rq *RabbitMQQueue) Close() error {
	select {
	case <-rq.closed:
		return nil
	default:
		close(rq.closed)
		rq.cancel()

		if rq.consumeChannel != nil {
			rq.consumeChannel.Close()
		}
		if rq.consumeConn != nil {
			rq.consumeConn.Close()
		}
		rq.closePublisher()

		log.Println("✓ RabbitMQ 事件队列已关闭")
		return nil
	}
}

func (rq *RabbitMQQueue) closePublisher() {
	if rq.publishChannel != nil {
		rq.publishChannel.Close()
	}
	if rq.publishConn != nil {
		rq.publishConn.Close()
	}
}

// QueueInfo 获取队列信息（调试用）
func (rq *RabbitMQQueue) QueueInfo() (messages, consumers int, err error) {
	q, err := rq.publishChannel.QueueInspect(rq.queueName)
	if err != nil {
		return 0, 0, err
	}
	return q.Messages, q.Consumers, nil
}
