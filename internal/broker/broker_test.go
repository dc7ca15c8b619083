package broker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"restoran-pos/internal/logger"
	"restoran-pos/internal/notify"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestKafkaSink_SendsEnvelope(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var env Envelope
		if err := json.Unmarshal(value, &env); err != nil {
			return err
		}
		if env.Event != notify.EventOrderStatusUpdated {
			return errors.New("unexpected event " + env.Event)
		}
		if !strings.Contains(string(env.Payload), `"order_id":42`) {
			return errors.New("payload missing order id")
		}
		return nil
	})

	sink := NewKafkaSinkWithProducer(producer, "pos-events", logger.Discard())
	err := sink.Send(notify.Event{
		Name:      notify.EventOrderStatusUpdated,
		Payload:   map[string]any{"order_id": 42, "version": 2},
		Timestamp: ts,
	})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestKafkaSink_ReportsFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSinkWithProducer(producer, "pos-events", logger.Discard())
	err := sink.Send(notify.Event{Name: notify.EventShiftStarted, Payload: map[string]any{"shift_id": 1}, Timestamp: ts})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, sink.Close())
}

func TestPartitionKey(t *testing.T) {
	cases := []struct {
		want string
		ev   notify.Event
	}{
		{"order-7", notify.Event{Name: notify.EventPaymentProcessed, Payload: map[string]any{"order_id": 7}}},
		{"shift-3", notify.Event{Name: notify.EventShiftEnded, Payload: map[string]any{"shift_id": 3}}},
		{"table-9", notify.Event{Name: notify.EventTableStatusUpdated, Payload: map[string]any{"table_id": 9}}},
		{"order_created", notify.Event{Name: notify.EventOrderCreated, Payload: "opaque"}},
	}
	for _, tc := range cases {
		data, err := encode(tc.ev)
		require.NoError(t, err)
		assert.Equal(t, tc.want, partitionKey(tc.ev, data))
	}
}

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	calls     int
	err       error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestRabbitSink_RoutesByEventName(t *testing.T) {
	ch := &fakeChannel{}
	sink := &RabbitSink{ch: ch, exchange: "pos_events", log: logger.Discard()}

	require.NoError(t, sink.Send(notify.Event{Name: notify.EventPaymentProcessed, Payload: map[string]any{"order_id": 1}, Timestamp: ts}))

	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{notify.EventPaymentProcessed}, ch.keys)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.published[0].DeliveryMode)
	assert.Contains(t, string(ch.published[0].Body), `"order_id":1`)
}

func TestAttach_KeepsSubscriptionOnSinkFailure(t *testing.T) {
	hub := notify.NewHub(8, logger.Discard())
	defer hub.Close()

	ch := &fakeChannel{err: errors.New("connection reset")}
	sink := &RabbitSink{ch: ch, exchange: "pos_events", log: logger.Discard()}
	Attach(hub, sink, logger.Discard())

	hub.Publish(notify.EventOrderCreated, map[string]any{"order_id": 1})
	require.Eventually(t, func() bool {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		return ch.calls == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.SubscriberCount())

	ch.mu.Lock()
	ch.err = nil
	ch.mu.Unlock()

	hub.Publish(notify.EventOrderCreated, map[string]any{"order_id": 2})
	assert.Eventually(t, func() bool {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		return len(ch.published) == 1
	}, time.Second, 5*time.Millisecond)
}
