package notify

import (
	"log"
	"sync"
)

// Message 推送给订阅者的一条消息（对应一个 SSE 事件）
type Message struct {
	Event string
	Data  any
}

// Hub 进程内消息广播
// 每个订阅者有独立的缓冲 channel，消息按发布顺序送达
// 缓冲满的订阅者会被移除并关闭 channel，不会静默丢失设备命令；客户端重连后重新同步
type Hub struct {
	mu         sync.Mutex
	subs       map[int]chan Message
	nextID     int
	bufferSize int
}

// NewHub 创建广播中心
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		subs:       make(map[int]chan Message),
		bufferSize: bufferSize,
	}
}

// Subscribe 订阅消息，返回消息 channel 与取消函数
func (h *Hub) Subscribe() (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Message, h.bufferSize)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.removeLocked(id)
	}
}

// removeLocked 移除订阅者；重复调用无副作用
func (h *Hub) removeLocked(id int) {
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish 广播消息，不阻塞发布方
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			log.Printf("⚠️ 订阅者 #%d 缓冲已满（%s 消息），断开连接等待重连", id, msg.Event)
			h.removeLocked(id)
		}
	}
}

// Subscribers 当前订阅者数量
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
