package conversation

import (
	"log"

	"github.com/zhouzirui/mannmitra/backend/internal/model/chat"
)

// EventType 区分推送给订阅者的事件种类。
type EventType string

const (
	EventMessage EventType = "message"
	EventLaunch  EventType = "launch"
)

// Event is delivered to subscribers whenever the transcript changes or a
// tool is launched.
type Event struct {
	Type      EventType     `json:"event"`
	SessionID string        `json:"sessionId"`
	Message   *chat.Message `json:"message,omitempty"`
	Tool      string        `json:"tool,omitempty"`
}

const subscriberBuffer = 64

// hub fans events out to subscribers. Callers hold the controller lock.
type hub struct {
	nextID      int
	subscribers map[int]chan Event
}

func newHub() hub {
	return hub{subscribers: make(map[int]chan Event)}
}

func (h *hub) add() (chan Event, int) {
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subscribers[h.nextID] = ch
	return ch, h.nextID
}

func (h *hub) remove(id int) {
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// publish never blocks; a subscriber whose buffer is full misses the event.
func (h *hub) publish(evt Event) {
	for id, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
			log.Printf("[conversation] subscriber %d lagging, dropped %s event for session=%s", id, evt.Type, evt.SessionID)
		}
	}
}

func (h *hub) closeAll() {
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}
