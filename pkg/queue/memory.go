package queue

import (
	"errors"
	"sync"

	"github.com/tucpd/listening-app/pkg/models"
)

var (
	ErrQueueFull   = errors.New("队列已满")
	ErrQueueClosed = errors.New("队列已关闭")
)

// MemoryQueue 基于 Channel 的内存队列实现
type MemoryQueue struct {
	queue     chan *models.PlaybackEvent
	closed    chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue 创建内存队列
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &MemoryQueue{
		queue:  make(chan *models.PlaybackEvent, bufferSize),
		closed: make(chan struct{}),
	}
}

// Enqueue 将事件加入队列；队列满时立即返回错误，不阻塞设备上报
func (mq *MemoryQueue) Enqueue(ev *models.PlaybackEvent) error {
	select {
	case <-mq.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case mq.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue 从队列取出事件（阻塞等待）
func (mq *MemoryQueue) Dequeue() (*models.PlaybackEvent, error) {
	select {
	case ev := <-mq.queue:
		return ev, nil
	case <-mq.closed:
		return nil, ErrQueueClosed
	}
}

// Ack 内存队列无需确认
func (mq *MemoryQueue) Ack(*models.PlaybackEvent) error {
	return nil
}

// Nack 内存队列只支持重新入队
func (mq *MemoryQueue) Nack(ev *models.PlaybackEvent, requeue bool) error {
	if !requeue {
		return nil
	}
	return mq.Enqueue(ev)
}

// Close 关闭队列；可重复调用
func (mq *MemoryQueue) Close() error {
	mq.closeOnce.Do(func() {
		close(mq.closed)
	})
	return nil
}
