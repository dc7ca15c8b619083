// Package notify fans lifecycle events out to in-process observers such as
// kitchen displays, dashboards and broker bridges.
package notify

import (
	"fmt"
	"sync"
	"time"

	"restoran-pos/internal/logger"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusUpdated = "order_status_updated"
	EventPaymentProcessed   = "payment_processed"
	EventShiftStarted       = "shift_started"
	EventShiftEnded         = "shift_ended"
	EventTableStatusUpdated = "table_status_updated"

	// AllEvents subscribes a handler to every event name.
	AllEvents = "*"
)

type Event struct {
	Name      string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives events on the subscriber's own goroutine. Returning an
// error unsubscribes the handler.
type Handler func(Event) error

type Subscription struct {
	ID    string
	Event string
}

// Publisher is what the order, payment and shift services depend on.
type Publisher interface {
	Publish(event string, payload any)
}

type Bus interface {
	Publisher
	Subscribe(event string, h Handler) Subscription
	Unsubscribe(sub Subscription)
}

type subscriber struct {
	sub     Subscription
	handler Handler
	queue   chan Event
	done    chan struct{}
	once    sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub is the in-memory Bus. Delivery is at-most-once: each subscriber has a
// bounded queue, and a full queue drops the event for that subscriber only.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]*subscriber
	queueSize int
	log       *logger.Logger
}

func NewHub(queueSize int, log *logger.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		subs:      make(map[string]*subscriber),
		queueSize: queueSize,
		log:       log,
	}
}

func (h *Hub) Subscribe(event string, handler Handler) Subscription {
	s := &subscriber{
		sub:     Subscription{ID: uuid.NewString(), Event: event},
		handler: handler,
		queue:   make(chan Event, h.queueSize),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s.sub.ID] = s
	h.mu.Unlock()

	go h.deliver(s)
	return s.sub
}

func (h *Hub) Unsubscribe(sub Subscription) {
	h.mu.Lock()
	s, ok := h.subs[sub.ID]
	delete(h.subs, sub.ID)
	h.mu.Unlock()

	if ok {
		s.stop()
	}
}

// Publish never blocks on subscribers.
func (h *Hub) Publish(event string, payload any) {
	ev := Event{Name: event, Payload: payload, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		if s.sub.Event != AllEvents && s.sub.Event != event {
			continue
		}
		select {
		case <-s.done:
		case s.queue <- ev:
		default:
			h.log.Warnf("NOTIFY", "subscriber %s queue full, dropped %s", s.sub.ID, event)
		}
	}
}

// SubscriberCount is used by the health endpoint and tests.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

func (h *Hub) deliver(s *subscriber) {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			if err := h.call(s, ev); err != nil {
				h.log.Warnf("NOTIFY", "dropping subscriber %s: %v", s.sub.ID, err)
				h.Unsubscribe(s.sub)
				return
			}
		}
	}
}

func (h *Hub) call(s *subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler(ev)
}
