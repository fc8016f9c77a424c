package events

import (
	"sync"
	"time"

	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event is a lifecycle notification. Payload is the outbound JSON body; Subject carries
// the model for in-process subscribers.
type Event struct {
	ID         string
	Name       string
	OccurredAt time.Time
	Payload    map[string]interface{}
	Subject    interface{}
}

func New(name string, payload map[string]interface{}, subject interface{}) Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["event"] = name
	return Event{
		ID:         uuid.New().String(),
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
		Subject:    subject,
	}
}

type Handler func(Event)

type subscription struct {
	id      int
	name    string
	handler Handler
}

// Bus delivers events synchronously to subscribers in registration order. A panicking
// handler is logged and does not stop delivery to the rest.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
	log    *logrus.Entry
}

func NewBus(log *logrus.Entry) *Bus {
	if log == nil {
		log = logging.Nop()
	}
	return &Bus{log: log}
}

// Subscribe registers h for events called name, or for every event when name is "*".
// The returned func removes the subscription.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, name: name, handler: h})
	return func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	matched := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.name == "*" || s.name == e.Name {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	if len(matched) == 0 {
		b.log.WithField("event", e.Name).Debug("no subscribers")
		return
	}

	for _, s := range matched {
		b.call(s, e)
	}
}

func (b *Bus) call(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"event":    e.Name,
				"event_id": e.ID,
				"panic":    r,
			}).Error("event handler panicked")
		}
	}()
	s.handler(e)
}

func (b *Bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) Clear() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}

var Default = NewBus(logging.Component("eventbus"))

func Publish(e Event) {
	Default.Publish(e)
}

func Subscribe(name string, h Handler) func() {
	return Default.Subscribe(name, h)
}
