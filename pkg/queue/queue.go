package queue

import "github.com/tucpd/listening-app/pkg/models"

// Queue 设备事件队列接口
// 设备上报的 tick/loaded/ended 事件经由队列交给唯一的消费者，保证逐个处理
type Queue interface {
	// Enqueue 将事件加入队列
	Enqueue(ev *models.PlaybackEvent) error

	// Dequeue 从队列取出事件（阻塞）
	Dequeue() (*models.PlaybackEvent, error)

	// Ack 确认事件已处理
	Ack(ev *models.PlaybackEvent) error

	// Nack 拒绝事件
	// requeue: 是否重新入队
	Nack(ev *models.PlaybackEvent, requeue bool) error

	// Close 关闭队列
	Close() error
}
