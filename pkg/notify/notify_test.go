package notify

import (
	"encoding/json"
	"testing"

	"github.com/tucpd/listening-app/pkg/models"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub(4)
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()

	h.Publish(Message{Event: "state", Data: 1})
	h.Publish(Message{Event: "state", Data: 2})

	for _, ch := range []<-chan Message{a, b} {
		for want := 1; want <= 2; want++ {
			msg := <-ch
			if msg.Data != want {
				t.Fatalf("got %v want %v", msg.Data, want)
			}
		}
	}

	cancelA()
	cancelA()
	if n := h.Subscribers(); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
	if _, ok := <-a; ok {
		t.Fatal("cancelled channel should be closed")
	}
}

func TestHubEvictsFullSubscriber(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	defer cancel()
	other, cancelOther := h.Subscribe()
	defer cancelOther()

	h.Publish(Message{Event: "state", Data: 1})
	<-other
	h.Publish(Message{Event: EventCommand, Data: 2})

	if msg := <-ch; msg.Data != 1 {
		t.Fatalf("expected first message kept, got %v", msg.Data)
	}
	if _, ok := <-ch; ok {
		t.Fatal("full subscriber should be disconnected instead of silently losing a message")
	}
	if msg := <-other; msg.Data != 2 {
		t.Fatalf("drained subscriber should still receive, got %v", msg.Data)
	}
	if n := h.Subscribers(); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
}

func TestDeviceFacadeCommands(t *testing.T) {
	h := NewHub(8)
	ch, cancel := h.Subscribe()
	defer cancel()

	d := NewDeviceFacade(h)
	d.Load("/media/a.mp3", 3)
	d.Seek(2.5)
	d.Play()

	want := []models.Command{
		{Name: models.CmdLoad, Locator: "/media/a.mp3", Seq: 3},
		{Name: models.CmdSeek, Time: 2.5},
		{Name: models.CmdPlay},
	}
	for i, w := range want {
		msg := <-ch
		if msg.Event != EventCommand {
			t.Fatalf("message %d: event %q", i, msg.Event)
		}
		if got := msg.Data.(models.Command); got != w {
			t.Fatalf("message %d: got %+v want %+v", i, got, w)
		}
	}
}

func TestChannelName(t *testing.T) {
	if got := ChannelName("", "abc"); got != "listenloop:session:abc:state" {
		t.Fatalf("unexpected channel %q", got)
	}
	if got := ChannelName("app", "s1"); got != "app:session:s1:state" {
		t.Fatalf("unexpected channel %q", got)
	}
}

func TestDeviceFacadeSeekZeroKeepsTime(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe()
	defer cancel()

	NewDeviceFacade(h).Seek(0)

	data, err := json.Marshal((<-ch).Data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := fields["time"]; !ok || v != 0.0 {
		t.Fatalf("seek(0) should carry time 0, got %s", data)
	}
}
