package notify

import "github.com/tucpd/listening-app/pkg/models"

// EventCommand 设备命令的 SSE 事件名
const EventCommand = "command"

// DeviceFacade 通过 Hub 把播放命令推送给浏览器端的播放设备
type DeviceFacade struct {
	hub *Hub
}

// NewDeviceFacade 创建设备命令通道
func NewDeviceFacade(hub *Hub) *DeviceFacade {
	return &DeviceFacade{hub: hub}
}

func (d *DeviceFacade) send(cmd models.Command) {
	d.hub.Publish(Message{Event: EventCommand, Data: cmd})
}

func (d *DeviceFacade) Load(locator string, seq uint64) {
	d.send(models.Command{Name: models.CmdLoad, Locator: locator, Seq: seq})
}

func (d *DeviceFacade) Play() {
	d.send(models.Command{Name: models.CmdPlay})
}

func (d *DeviceFacade) Pause() {
	d.send(models.Command{Name: models.CmdPause})
}

func (d *DeviceFacade) Seek(seconds float64) {
	d.send(models.Command{Name: models.CmdSeek, Time: seconds})
}

func (d *DeviceFacade) SetRate(multiplier float64) {
	d.send(models.Command{Name: models.CmdRate, Rate: multiplier})
}
