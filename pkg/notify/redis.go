package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tucpd/listening-app/pkg/models"
)

// RedisPublisher 把状态快照发布到 Redis 频道，供其他进程的展示层订阅
// 只做广播，不保存任何播放位置
type RedisPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	queue   chan models.Snapshot
	stopCh  chan struct{}
	done    chan struct{}
}

// NewRedisPublisher 创建 Redis 发布者并启动后台发布 goroutine
func NewRedisPublisher(client *redis.Client, channelPrefix, sessionID string) *RedisPublisher {
	p := &RedisPublisher{
		client:  client,
		channel: ChannelName(channelPrefix, sessionID),
		timeout: 2 * time.Second,
		queue:   make(chan models.Snapshot, 64),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// ChannelName 会话对应的频道名
// 格式: "{prefix}:session:{sessionID}:state"
func ChannelName(prefix, sessionID string) string {
	if prefix == "" {
		prefix = "listenloop"
	}
	return fmt.Sprintf("%s:session:%s:state", prefix, sessionID)
}

// Channel 发布使用的频道
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish 同步发布一条快照
func (p *RedisPublisher) Publish(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("序列化快照失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("发布到 Redis 失败: %w", err)
	}
	return nil
}

// Observe 适配为 player.Observer：只入队，不阻塞引擎
func (p *RedisPublisher) Observe(snap models.Snapshot) {
	select {
	case p.queue <- snap:
	default:
		log.Printf("⚠️ Redis 发布队列已满，丢弃快照 v%d", snap.Version)
	}
}

// run 后台发布循环
func (p *RedisPublisher) run() {
	defer close(p.done)
	for {
		select {
		case snap := <-p.queue:
			if err := p.Publish(context.Background(), snap); err != nil {
				log.Printf("⚠️ %v", err)
			}
		case <-p.stopCh:
			return
		}
	}
}

// Close 停止后台发布；不关闭 Redis 客户端
func (p *RedisPublisher) Close() error {
	close(p.stopCh)
	<-p.done
	return nil
}
