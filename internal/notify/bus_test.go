package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"restoran-pos/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, hub *Hub, event string) (*sync.Mutex, *[]Event) {
	t.Helper()
	var mu sync.Mutex
	var got []Event
	hub.Subscribe(event, func(ev Event) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		return nil
	})
	return &mu, &got
}

func waitLen(t *testing.T, mu *sync.Mutex, got *[]Event, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(*got) >= n
	}, time.Second, 5*time.Millisecond)
}

func TestHub_DeliversToMatchingSubscribers(t *testing.T) {
	hub := NewHub(8, logger.Discard())
	defer hub.Close()

	muA, created := collect(t, hub, EventOrderCreated)
	muB, all := collect(t, hub, AllEvents)

	hub.Publish(EventOrderCreated, map[string]any{"order_id": 1})
	hub.Publish(EventPaymentProcessed, map[string]any{"order_id": 1})

	waitLen(t, muB, all, 2)
	waitLen(t, muA, created, 1)

	muA.Lock()
	assert.Len(t, *created, 1)
	assert.Equal(t, EventOrderCreated, (*created)[0].Name)
	muA.Unlock()
}

func TestHub_PreservesPublishOrderPerSubscriber(t *testing.T) {
	hub := NewHub(64, logger.Discard())
	defer hub.Close()

	mu, got := collect(t, hub, EventOrderStatusUpdated)
	for i := 1; i <= 20; i++ {
		hub.Publish(EventOrderStatusUpdated, i)
	}

	waitLen(t, mu, got, 20)
	mu.Lock()
	defer mu.Unlock()
	for i, ev := range *got {
		assert.Equal(t, i+1, ev.Payload)
	}
}

func TestHub_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(1, logger.Discard())
	defer hub.Close()

	release := make(chan struct{})
	hub.Subscribe(AllEvents, func(Event) error {
		<-release
		return nil
	})
	mu, got := collect(t, hub, AllEvents)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish(EventOrderCreated, i)
			time.Sleep(10 * time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	close(release)

	waitLen(t, mu, got, 5)
}

func TestHub_FailingSubscriberIsDropped(t *testing.T) {
	hub := NewHub(8, logger.Discard())
	defer hub.Close()

	hub.Subscribe(AllEvents, func(Event) error { return errors.New("connection reset") })
	hub.Subscribe(AllEvents, func(Event) error { panic("boom") })
	mu, got := collect(t, hub, AllEvents)
	require.Equal(t, 3, hub.SubscriberCount())

	hub.Publish(EventOrderCreated, 1)

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	waitLen(t, mu, got, 1)

	hub.Publish(EventOrderCreated, 2)
	waitLen(t, mu, got, 2)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(8, logger.Discard())
	defer hub.Close()

	calls := make(chan Event, 4)
	sub := hub.Subscribe(AllEvents, func(ev Event) error {
		calls <- ev
		return nil
	})
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	hub.Publish(EventOrderCreated, 1)

	select {
	case <-calls:
		t.Fatal("unsubscribed handler received an event")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 0, hub.SubscriberCount())
}
