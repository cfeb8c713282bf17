package player

// Facade 播放设备抽象（命令接收端）
// 所有命令都是 fire-and-forget；实现不能同步回调 Engine
type Facade interface {
	// Load 加载新的音源，设备在元数据就绪后必须回传相同 seq 的 loaded 事件
	Load(locator string, seq uint64)
	Play()
	Pause()
	Seek(seconds float64)
	SetRate(multiplier float64)
}

// Observer 状态变更订阅者
// 回调在状态锁之外按 version 顺序执行，可以调用 Snapshot 等只读方法；
// 不能同步调用 Engine 的命令方法，否则会等待自身的通知而阻塞
type Observer func(snapshot Snapshot)

// NopFacade 丢弃所有命令（无设备连接时使用）
type NopFacade struct{}

func (NopFacade) Load(string, uint64) {}
func (NopFacade) Play()               {}
func (NopFacade) Pause()              {}
func (NopFacade) Seek(float64)        {}
func (NopFacade) SetRate(float64)     {}
