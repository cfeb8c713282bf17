package models

import "time"

// EventType 播放设备上报的事件类型
type EventType string

const (
	EventTick   EventType = "tick"
	EventLoaded EventType = "loaded"
	EventEnded  EventType = "ended"
)

// PlaybackEvent 播放设备事件
// Loaded 事件的 Seq 必须回传切换曲目时下发的序号，否则视为过期
type PlaybackEvent struct {
	Type       EventType `json:"type"`
	Time       float64   `json:"time,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	Seq        uint64    `json:"seq,omitempty"`
	ReceivedAt time.Time `json:"received_at"`

	// RabbitMQ 相关（不序列化到 JSON）
	DeliveryTag      uint64 `json:"-"`
	RabbitMQDelivery any    `json:"-"`
}

// 设备命令名
const (
	CmdLoad  = "load"
	CmdPlay  = "play"
	CmdPause = "pause"
	CmdSeek  = "seek"
	CmdRate  = "rate"
)

// Command 下发给播放设备的命令
type Command struct {
	Name    string  `json:"name"`
	Time    float64 `json:"time"` // seek(0) 必须带上 time
	Rate    float64 `json:"rate,omitempty"`
	Locator string  `json:"locator,omitempty"`
	Seq     uint64  `json:"seq,omitempty"`
}
