// Package broker forwards in-process notifications to an external message
// broker so that services outside this process can follow order and shift
// activity.
package broker

import (
	"encoding/json"

	"restoran-pos/internal/logger"
	"restoran-pos/internal/notify"
)

// Sink delivers one event to the broker.
type Sink interface {
	Send(ev notify.Event) error
	Close() error
}

// Attach subscribes sink to every event on bus. Send failures are logged and
// the subscription stays in place; delivery is best effort like the bus.
func Attach(bus notify.Bus, sink Sink, log *logger.Logger) notify.Subscription {
	return bus.Subscribe(notify.AllEvents, func(ev notify.Event) error {
		if err := sink.Send(ev); err != nil {
			log.Warnf("BROKER", "%s not forwarded: %v", ev.Name, err)
		}
		return nil
	})
}

// Envelope is the message body written to the broker.
type Envelope struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func encode(ev notify.Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Event:     ev.Name,
		Timestamp: ev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Payload:   payload,
	})
}

// partitionKey keeps every event of one order on one partition so consumers
// see them in commit order.
func partitionKey(ev notify.Event, payload []byte) string {
	var ref struct {
		OrderID uint `json:"order_id"`
		ShiftID uint `json:"shift_id"`
		TableID uint `json:"table_id"`
	}
	var env Envelope
	if err := json.Unmarshal(payload, &env); err == nil {
		_ = json.Unmarshal(env.Payload, &ref)
	}
	switch {
	case ref.OrderID != 0:
		return "order-" + itoa(ref.OrderID)
	case ref.ShiftID != 0:
		return "shift-" + itoa(ref.ShiftID)
	case ref.TableID != 0:
		return "table-" + itoa(ref.TableID)
	default:
		return ev.Name
	}
}
