package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tucpd/listening-app/pkg/models"
	"github.com/tucpd/listening-app/pkg/queue"
)

// Dispatcher 设备事件的处理方（通常是 *player.Engine）
type Dispatcher interface {
	Dispatch(ev models.PlaybackEvent)
}

// Worker 设备事件消费者
// 只有一个 Worker 从队列取事件，事件按顺序逐个处理
type Worker struct {
	queue      queue.Queue
	dispatcher Dispatcher
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewWorker 创建 Worker
func NewWorker(q queue.Queue, dispatcher Dispatcher) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		queue:      q,
		dispatcher: dispatcher,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start 启动 Worker（在独立的 Goroutine 中运行）
func (w *Worker) Start() {
	go w.run()
}

// Stop 停止 Worker
// 阻塞在 Dequeue 上的 Worker 需要先关闭队列才能退出
func (w *Worker) Stop() {
	log.Println("正在停止 Worker...")
	w.cancel()
}

// Done Worker 退出后关闭
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// run Worker 主循环
func (w *Worker) run() {
	defer close(w.done)
	log.Println("Worker 已启动，等待设备事件...")

	for {
		select {
		case <-w.ctx.Done():
			log.Println("Worker 已停止")
			return
		default:
		}

		ev, err := w.queue.Dequeue()
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) {
				log.Println("Worker 已停止（队列已关闭）")
				return
			}
			log.Printf("从队列获取事件失败: %v", err)
			select {
			case <-time.After(time.Second):
			case <-w.ctx.Done():
			}
			continue
		}

		w.dispatcher.Dispatch(*ev)

		if err := w.queue.Ack(ev); err != nil {
			log.Printf("⚠️ 确认事件失败: %v", err)
		}
	}
}
